package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/abroad/client/internal/api"
)

func newTestCatalog(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	apiClient, err := api.NewClient(api.Options{
		BaseURL: server.URL,
		Retry:   &api.RetryConfig{MaxRetries: 0},
	})
	require.NoError(t, err)
	return NewClient(apiClient), server
}

// TestBucketDeadline tests the deadline classification boundaries.
func TestBucketDeadline(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     DeadlineStatus
	}{
		{"yesterday", now.AddDate(0, 0, -1), DeadlineOverdue},
		{"one hour ago", now.Add(-time.Hour), DeadlineOverdue},
		{"tomorrow", now.AddDate(0, 0, 1), DeadlineDueSoon},
		{"in exactly seven days", now.AddDate(0, 0, 7), DeadlineDueSoon},
		{"in eight days", now.AddDate(0, 0, 8), DeadlineUpcoming},
		{"in thirty days", now.AddDate(0, 0, 30), DeadlineUpcoming},
		{"in two months", now.AddDate(0, 2, 0), DeadlineOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BucketDeadline(tt.deadline, now))
		})
	}
}

// TestSearchUniversitiesFilters tests that the filter is sent as query
// parameters and the result list decodes.
func TestSearchUniversitiesFilters(t *testing.T) {
	client, _ := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/universities", r.URL.Path)
		assert.Equal(t, "Germany", r.URL.Query().Get("country"))
		assert.Equal(t, "master", r.URL.Query().Get("degree"))
		assert.Equal(t, "Computer Science", r.URL.Query().Get("field"))
		assert.Equal(t, "15000", r.URL.Query().Get("maxTuition"))

		json.NewEncoder(w).Encode(map[string]any{"universities": []University{
			{ID: "uni1", Name: "TU Example", Country: "Germany", TuitionPerYr: decimal.NewFromInt(12000)},
		}})
	}))

	unis, err := client.SearchUniversities(context.Background(), SearchFilter{
		Country:      "Germany",
		Degree:       "master",
		FieldOfStudy: "Computer Science",
		MaxTuition:   decimal.NewFromInt(15000),
	})
	require.NoError(t, err)
	require.Len(t, unis, 1)
	assert.Equal(t, "TU Example", unis[0].Name)
	assert.True(t, unis[0].TuitionPerYr.Equal(decimal.NewFromInt(12000)))
}

// TestSearchFilterEmpty tests that a zero filter sends no parameters.
func TestSearchFilterEmpty(t *testing.T) {
	client, _ := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		json.NewEncoder(w).Encode(map[string]any{"universities": []University{}})
	}))

	unis, err := client.SearchUniversities(context.Background(), SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, unis)
}

// TestSearchScholarships tests scholarship search decoding.
func TestSearchScholarships(t *testing.T) {
	client, _ := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/scholarships", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"scholarships": []Scholarship{
			{ID: "s1", Name: "DAAD", Amount: decimal.NewFromInt(6000)},
		}})
	}))

	schs, err := client.SearchScholarships(context.Background(), SearchFilter{})
	require.NoError(t, err)
	require.Len(t, schs, 1)
	assert.Equal(t, "DAAD", schs[0].Name)
}

// TestSubmitApplication tests the submit round trip.
func TestSubmitApplication(t *testing.T) {
	client, _ := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "uni1", body["universityId"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"application": Application{
			ID: "app1", UniversityID: "uni1", Status: StatusSubmitted,
		}})
	}))

	app, err := client.SubmitApplication(context.Background(), "uni1")
	require.NoError(t, err)
	assert.Equal(t, "app1", app.ID)
	assert.Equal(t, StatusSubmitted, app.Status)
}

// TestSubmitApplicationConflict tests that a duplicate application
// surfaces the server message.
func TestSubmitApplicationConflict(t *testing.T) {
	client, _ := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "You have already applied to this university"})
	}))

	_, err := client.SubmitApplication(context.Background(), "uni1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already applied")
}

// TestListAndWithdrawApplications tests listing and withdrawal.
func TestListAndWithdrawApplications(t *testing.T) {
	client, _ := newTestCatalog(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"applications": []Application{
				{ID: "app1", Status: StatusUnderReview},
			}})
		case r.Method == http.MethodDelete:
			assert.Equal(t, "/api/applications/app1", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{"success": true})
		}
	}))

	apps, err := client.ListApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)

	require.NoError(t, client.WithdrawApplication(context.Background(), "app1"))
}
