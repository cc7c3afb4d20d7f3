package notify

import "time"

// Type categorizes a notification. The set is open: unrecognized values
// are carried through and rendered with the default label.
type Type string

// Known notification types.
const (
	TypeApplicationStatusUpdate Type = "application_status_update"
	TypeDeadlineReminder        Type = "deadline_reminder"
	TypeInterviewScheduled      Type = "interview_scheduled"
	TypeDocumentRequired        Type = "document_required"
	TypeAcceptance              Type = "acceptance"
	TypeRejection               Type = "rejection"
)

// Notification is a single entry in the user's notification feed.
type Notification struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
	ApplicationID string    `json:"applicationId,omitempty"`
}

// Label returns a short human-readable tag for the type. Presentation
// only; nothing branches on the type beyond display and routing.
func (t Type) Label() string {
	switch t {
	case TypeApplicationStatusUpdate:
		return "status update"
	case TypeDeadlineReminder:
		return "deadline"
	case TypeInterviewScheduled:
		return "interview"
	case TypeDocumentRequired:
		return "document"
	case TypeAcceptance:
		return "acceptance"
	case TypeRejection:
		return "rejection"
	default:
		return "notification"
	}
}

// Symbol returns a one-character glyph for list rendering.
func (t Type) Symbol() string {
	switch t {
	case TypeApplicationStatusUpdate:
		return "↺"
	case TypeDeadlineReminder:
		return "⏰"
	case TypeInterviewScheduled:
		return "🎤"
	case TypeDocumentRequired:
		return "📄"
	case TypeAcceptance:
		return "🎉"
	case TypeRejection:
		return "✖"
	default:
		return "•"
	}
}
