// Package mockapi is an in-memory implementation of the platform REST
// API, used for local development and end-to-end exercising of the
// client without a real backend.
package mockapi

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/abroad/client/internal/catalog"
	"github.com/example/abroad/client/internal/notify"
	"github.com/example/abroad/client/internal/session"
)

const tokenTTL = 24 * time.Hour

// account is one registered user plus everything hanging off it.
type account struct {
	User          session.User
	Password      string
	Documents     map[string][]byte
	Notifications []notify.Notification
	Applications  []catalog.Application
}

// Server holds all state behind a single mutex. Good enough for a dev
// fixture; it is not meant to take production traffic.
type Server struct {
	log    *zap.Logger
	secret []byte

	mu           sync.Mutex
	accounts     map[string]*account // keyed by user ID
	byEmail      map[string]string   // email -> user ID
	revoked      map[string]struct{}
	universities []catalog.University
	scholarships []catalog.Scholarship
}

// NewServer creates a server with a freshly seeded catalog.
func NewServer(secret string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:      log,
		secret:   []byte(secret),
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		revoked:  make(map[string]struct{}),
	}
	s.universities = seedUniversities(40)
	s.scholarships = seedScholarships(15)
	return s
}

// Router builds the gin engine with all routes attached.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", s.handleSignup)
		auth.POST("/login", s.handleLogin)
		auth.POST("/logout", s.authRequired(), s.handleLogout)
		auth.GET("/me", s.authRequired(), s.handleMe)
	}

	me := r.Group("/api/me", s.authRequired())
	{
		me.GET("/profile", s.handleGetProfile)
		me.PUT("/profile", s.handleUpdateProfile)
		me.POST("/profile/documents/upload", s.handleUploadDocuments)
		me.GET("/profile/documents/:kind", s.handleDownloadDocument)
		me.DELETE("/profile/documents/:kind", s.handleDeleteDocument)
	}

	nots := r.Group("/api/notifications", s.authRequired())
	{
		nots.GET("", s.handleListNotifications)
		nots.PATCH("/mark-all-read", s.handleMarkAllRead)
		nots.PATCH("/:id/read", s.handleMarkRead)
		nots.DELETE("/:id", s.handleDeleteNotification)
	}

	r.GET("/api/universities", s.handleSearchUniversities)
	r.GET("/api/scholarships", s.handleSearchScholarships)

	apps := r.Group("/api/applications", s.authRequired())
	{
		apps.POST("", s.handleSubmitApplication)
		apps.GET("", s.handleListApplications)
		apps.DELETE("/:id", s.handleWithdrawApplication)
	}

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (s *Server) issueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// authRequired validates the bearer token and stashes the account ID in
// the context. Revoked and expired tokens are rejected alike.
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
			return
		}

		s.mu.Lock()
		_, isRevoked := s.revoked[raw]
		s.mu.Unlock()
		if isRevoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session expired"})
			return
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session expired"})
			return
		}
		claims := token.Claims.(*jwt.RegisteredClaims)

		s.mu.Lock()
		_, known := s.accounts[claims.Subject]
		s.mu.Unlock()
		if !known {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session expired"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("rawToken", raw)
		c.Next()
	}
}

func (s *Server) account(c *gin.Context) *account {
	return s.accounts[c.GetString("userID")]
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Country  string `json:"country" binding:"required"`
	Degree   string `json:"degree"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid signup details"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[strings.ToLower(req.Email)]; exists {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "An account with this email already exists"})
		return
	}

	acct := &account{
		User: session.User{
			ID:    uuid.NewString(),
			Name:  req.Name,
			Email: strings.ToLower(req.Email),
			Role:  session.RoleStudent,
			Profile: session.Profile{
				Country: req.Country,
				Degree:  req.Degree,
			},
		},
		Password:      req.Password,
		Documents:     make(map[string][]byte),
		Notifications: seedWelcomeNotifications(),
	}
	s.accounts[acct.User.ID] = acct
	s.byEmail[acct.User.Email] = acct.User.ID

	token, err := s.issueToken(acct.User.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "token": token, "user": acct.User})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(req.Email)]
	if !ok || s.accounts[id].Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	acct := s.accounts[id]

	token, err := s.issueToken(acct.User.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Could not issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": acct.User})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.mu.Lock()
	s.revoked[c.GetString("rawToken")] = struct{}{}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleMe(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"user": s.account(c).User})
}
