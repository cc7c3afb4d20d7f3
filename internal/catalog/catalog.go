// Package catalog is the read side of the programme database:
// universities, scholarships and the student's applications.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/abroad/client/internal/api"
)

// University is one institution with a single representative programme
// as listed by the search endpoint.
type University struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Country       string          `json:"country"`
	City          string          `json:"city"`
	Degree        string          `json:"degree"`
	FieldOfStudy  string          `json:"fieldOfStudy"`
	TuitionPerYr  decimal.Decimal `json:"tuitionPerYear"`
	Ranking       int             `json:"ranking,omitempty"`
	Deadline      time.Time       `json:"deadline"`
	LanguageTests []string        `json:"languageTests,omitempty"`
}

// Scholarship is one funding opportunity.
type Scholarship struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Country  string          `json:"country"`
	Amount   decimal.Decimal `json:"amount"`
	Deadline time.Time       `json:"deadline"`
	MinGPA   float64         `json:"minGpa,omitempty"`
}

// Application is one submitted university application.
type Application struct {
	ID           string    `json:"id"`
	UniversityID string    `json:"universityId"`
	University   string    `json:"university"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Application statuses as reported by the server.
const (
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusInterview   = "interview"
	StatusAccepted    = "accepted"
	StatusRejected    = "rejected"
	StatusWithdrawn   = "withdrawn"
)

// DeadlineStatus buckets a deadline relative to now.
type DeadlineStatus string

// Deadline buckets, tightest first.
const (
	DeadlineOverdue  DeadlineStatus = "overdue"
	DeadlineDueSoon  DeadlineStatus = "due_soon"
	DeadlineUpcoming DeadlineStatus = "upcoming"
	DeadlineOpen     DeadlineStatus = "open"
)

// BucketDeadline classifies a deadline: past is overdue, within 7 days
// is due soon, within 30 days is upcoming, anything later is open.
func BucketDeadline(deadline, now time.Time) DeadlineStatus {
	d := deadline.Sub(now)
	switch {
	case d < 0:
		return DeadlineOverdue
	case d <= 7*24*time.Hour:
		return DeadlineDueSoon
	case d <= 30*24*time.Hour:
		return DeadlineUpcoming
	default:
		return DeadlineOpen
	}
}

// SearchFilter narrows a university or scholarship search. Zero values
// mean "no constraint".
type SearchFilter struct {
	Country      string
	Degree       string
	FieldOfStudy string
	MaxTuition   decimal.Decimal
}

func (f SearchFilter) queryParams() map[string]string {
	q := map[string]string{}
	if f.Country != "" {
		q["country"] = f.Country
	}
	if f.Degree != "" {
		q["degree"] = f.Degree
	}
	if f.FieldOfStudy != "" {
		q["field"] = f.FieldOfStudy
	}
	if f.MaxTuition.IsPositive() {
		q["maxTuition"] = f.MaxTuition.String()
	}
	if len(q) == 0 {
		return nil
	}
	return q
}

// Client reads the catalog over the shared HTTP client.
type Client struct {
	api *api.Client
}

// NewClient wraps the shared HTTP client.
func NewClient(c *api.Client) *Client {
	return &Client{api: c}
}

type universitiesResponse struct {
	Universities []University `json:"universities"`
}

type scholarshipsResponse struct {
	Scholarships []Scholarship `json:"scholarships"`
}

type applicationsResponse struct {
	Applications []Application `json:"applications"`
}

type applicationResponse struct {
	Application Application `json:"application"`
}

// SearchUniversities lists universities matching the filter.
func (c *Client) SearchUniversities(ctx context.Context, f SearchFilter) ([]University, error) {
	resp, err := c.api.Get(ctx, "/api/universities", f.queryParams())
	if err != nil {
		return nil, fmt.Errorf("searching universities: %w", err)
	}
	if !resp.OK() {
		return nil, api.NewError(resp, "could not search universities")
	}
	var body universitiesResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body.Universities, nil
}

// SearchScholarships lists scholarships matching the filter.
func (c *Client) SearchScholarships(ctx context.Context, f SearchFilter) ([]Scholarship, error) {
	resp, err := c.api.Get(ctx, "/api/scholarships", f.queryParams())
	if err != nil {
		return nil, fmt.Errorf("searching scholarships: %w", err)
	}
	if !resp.OK() {
		return nil, api.NewError(resp, "could not search scholarships")
	}
	var body scholarshipsResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body.Scholarships, nil
}

// SubmitApplication applies to one university and returns the created
// application record.
func (c *Client) SubmitApplication(ctx context.Context, universityID string) (Application, error) {
	payload := map[string]string{"universityId": universityID}
	resp, err := c.api.Post(ctx, "/api/applications", payload)
	if err != nil {
		return Application{}, fmt.Errorf("submitting application: %w", err)
	}
	if !resp.OK() {
		return Application{}, api.NewError(resp, "could not submit application")
	}
	var body applicationResponse
	if err := resp.Decode(&body); err != nil {
		return Application{}, err
	}
	return body.Application, nil
}

// ListApplications returns the student's applications, newest first.
func (c *Client) ListApplications(ctx context.Context) ([]Application, error) {
	resp, err := c.api.Get(ctx, "/api/applications", nil)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	if !resp.OK() {
		return nil, api.NewError(resp, "could not list applications")
	}
	var body applicationsResponse
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return body.Applications, nil
}

// WithdrawApplication withdraws one application.
func (c *Client) WithdrawApplication(ctx context.Context, id string) error {
	resp, err := c.api.Delete(ctx, "/api/applications/"+id)
	if err != nil {
		return fmt.Errorf("withdrawing application: %w", err)
	}
	if !resp.OK() {
		return api.NewError(resp, "could not withdraw application")
	}
	return nil
}
