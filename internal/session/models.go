package session

import "time"

// Role distinguishes student accounts from back-office accounts.
type Role string

// Known roles.
const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is the authenticated account record as returned by the server.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Role    Role    `json:"role"`
	Profile Profile `json:"profile"`
}

// Profile holds the study-abroad applicant profile attached to a user.
type Profile struct {
	Phone        string     `json:"phone,omitempty"`
	Country      string     `json:"country,omitempty"`
	Degree       string     `json:"degree,omitempty"`
	FieldOfStudy string     `json:"fieldOfStudy,omitempty"`
	GPA          float64    `json:"gpa,omitempty"`
	TargetIntake string     `json:"targetIntake,omitempty"`
	Documents    []Document `json:"documents,omitempty"`
}

// Document describes an uploaded profile document (transcript, language
// certificate, passport scan, ...). Kind is the upload slot; one
// document per kind.
type Document struct {
	Kind       string    `json:"kind"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// DocumentFile is the payload for a document upload.
type DocumentFile struct {
	Kind    string
	Name    string
	Content []byte
}

// SignupInput carries the fields for account creation. Validation runs
// client-side before any request leaves the machine.
type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Country  string `json:"country" validate:"required"`
	Degree   string `json:"degree,omitempty" validate:"omitempty,oneof=bachelor master phd"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
