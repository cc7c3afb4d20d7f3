package mockapi

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/abroad/client/internal/catalog"
	"github.com/example/abroad/client/internal/notify"
	"github.com/example/abroad/client/internal/session"
)

func (s *Server) handleGetProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"profile": s.account(c).User.Profile})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req session.Profile
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid profile"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	// Documents are managed through the upload endpoints, never by a
	// profile update.
	req.Documents = acct.User.Profile.Documents
	acct.User.Profile = req
	c.JSON(http.StatusOK, gin.H{"profile": acct.User.Profile})
}

func (s *Server) handleUploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid upload"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	for kind, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unreadable file for " + kind})
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unreadable file for " + kind})
			return
		}
		acct.Documents[kind] = content
		acct.User.Profile.Documents = upsertDocument(acct.User.Profile.Documents, session.Document{
			Kind:       kind,
			FileName:   fh.Filename,
			UploadedAt: time.Now().UTC(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"profile": acct.User.Profile})
}

// upsertDocument keeps one document per kind.
func upsertDocument(docs []session.Document, d session.Document) []session.Document {
	for i := range docs {
		if docs[i].Kind == d.Kind {
			docs[i] = d
			return docs
		}
	}
	return append(docs, d)
}

func (s *Server) handleDownloadDocument(c *gin.Context) {
	kind := c.Param("kind")

	s.mu.Lock()
	content, ok := s.account(c).Documents[kind]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No document for " + kind})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", content)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	kind := c.Param("kind")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	if _, ok := acct.Documents[kind]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "No document for " + kind})
		return
	}
	delete(acct.Documents, kind)
	docs := acct.User.Profile.Documents[:0]
	for _, d := range acct.User.Profile.Documents {
		if d.Kind != kind {
			docs = append(docs, d)
		}
	}
	acct.User.Profile.Documents = docs
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	list := acct.Notifications
	if list == nil {
		list = []notify.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": list})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	for i := range acct.Notifications {
		if acct.Notifications[i].ID == id {
			acct.Notifications[i].Read = true
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
}

func (s *Server) handleMarkAllRead(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	for i := range acct.Notifications {
		acct.Notifications[i].Read = true
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteNotification(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	for i := range acct.Notifications {
		if acct.Notifications[i].ID == id {
			acct.Notifications = append(acct.Notifications[:i], acct.Notifications[i+1:]...)
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
}

func (s *Server) handleSearchUniversities(c *gin.Context) {
	country := strings.ToLower(c.Query("country"))
	degree := strings.ToLower(c.Query("degree"))
	field := strings.ToLower(c.Query("field"))
	maxTuition := decimal.Zero
	if raw := c.Query("maxTuition"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid maxTuition"})
			return
		}
		maxTuition = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []catalog.University{}
	for _, u := range s.universities {
		if country != "" && strings.ToLower(u.Country) != country {
			continue
		}
		if degree != "" && strings.ToLower(u.Degree) != degree {
			continue
		}
		if field != "" && !strings.Contains(strings.ToLower(u.FieldOfStudy), field) {
			continue
		}
		if maxTuition.IsPositive() && u.TuitionPerYr.GreaterThan(maxTuition) {
			continue
		}
		out = append(out, u)
	}
	c.JSON(http.StatusOK, gin.H{"universities": out})
}

func (s *Server) handleSearchScholarships(c *gin.Context) {
	country := strings.ToLower(c.Query("country"))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []catalog.Scholarship{}
	for _, sch := range s.scholarships {
		if country != "" && strings.ToLower(sch.Country) != country {
			continue
		}
		out = append(out, sch)
	}
	c.JSON(http.StatusOK, gin.H{"scholarships": out})
}

type submitApplicationRequest struct {
	UniversityID string `json:"universityId" binding:"required"`
}

func (s *Server) handleSubmitApplication(c *gin.Context) {
	var req submitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "universityId is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var uni *catalog.University
	for i := range s.universities {
		if s.universities[i].ID == req.UniversityID {
			uni = &s.universities[i]
			break
		}
	}
	if uni == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "University not found"})
		return
	}

	acct := s.account(c)
	for _, a := range acct.Applications {
		if a.UniversityID == req.UniversityID && a.Status != catalog.StatusWithdrawn {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "You have already applied to this university"})
			return
		}
	}

	app := catalog.Application{
		ID:           uuid.NewString(),
		UniversityID: uni.ID,
		University:   uni.Name,
		Status:       catalog.StatusSubmitted,
		SubmittedAt:  time.Now().UTC(),
	}
	acct.Applications = append([]catalog.Application{app}, acct.Applications...)
	acct.Notifications = append([]notify.Notification{{
		ID:            uuid.NewString(),
		Type:          notify.TypeApplicationStatusUpdate,
		Title:         "Application submitted to " + uni.Name,
		Message:       "Your application to " + uni.Name + " has been received.",
		CreatedAt:     time.Now().UTC(),
		ApplicationID: app.ID,
	}}, acct.Notifications...)
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

func (s *Server) handleListApplications(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	list := acct.Applications
	if list == nil {
		list = []catalog.Application{}
	}
	c.JSON(http.StatusOK, gin.H{"applications": list})
}

func (s *Server) handleWithdrawApplication(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.account(c)
	for i := range acct.Applications {
		if acct.Applications[i].ID == id {
			acct.Applications[i].Status = catalog.StatusWithdrawn
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Application not found"})
}
