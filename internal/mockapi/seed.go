package mockapi

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/abroad/client/internal/catalog"
	"github.com/example/abroad/client/internal/notify"
)

var (
	seedCountries = []string{"Germany", "Netherlands", "Canada", "Australia", "UK", "USA", "Sweden", "Japan"}
	seedDegrees   = []string{"bachelor", "master", "phd"}
	seedFields    = []string{
		"Computer Science", "Mechanical Engineering", "Economics",
		"Data Science", "Biology", "Architecture", "Psychology",
	}
	seedTests = []string{"IELTS", "TOEFL", "Duolingo"}
)

func seedUniversities(n int) []catalog.University {
	out := make([]catalog.University, 0, n)
	for i := 0; i < n; i++ {
		deadline := gofakeit.DateRange(time.Now().AddDate(0, 0, 3), time.Now().AddDate(0, 10, 0))
		out = append(out, catalog.University{
			ID:           uuid.NewString(),
			Name:         fmt.Sprintf("%s University", gofakeit.City()),
			Country:      gofakeit.RandomString(seedCountries),
			City:         gofakeit.City(),
			Degree:       gofakeit.RandomString(seedDegrees),
			FieldOfStudy: gofakeit.RandomString(seedFields),
			TuitionPerYr: decimal.NewFromInt(int64(gofakeit.Number(2, 45) * 1000)),
			Ranking:      gofakeit.Number(1, 500),
			Deadline:     deadline.UTC(),
			LanguageTests: []string{
				gofakeit.RandomString(seedTests),
			},
		})
	}
	return out
}

func seedScholarships(n int) []catalog.Scholarship {
	out := make([]catalog.Scholarship, 0, n)
	for i := 0; i < n; i++ {
		deadline := gofakeit.DateRange(time.Now().AddDate(0, 0, 7), time.Now().AddDate(0, 8, 0))
		out = append(out, catalog.Scholarship{
			ID:       uuid.NewString(),
			Name:     fmt.Sprintf("%s Scholarship", gofakeit.LastName()),
			Country:  gofakeit.RandomString(seedCountries),
			Amount:   decimal.NewFromInt(int64(gofakeit.Number(1, 30) * 1000)),
			Deadline: deadline.UTC(),
			MinGPA:   float64(gofakeit.Number(25, 38)) / 10,
		})
	}
	return out
}

// seedWelcomeNotifications gives a fresh account something to see in
// the notification panel.
func seedWelcomeNotifications() []notify.Notification {
	return []notify.Notification{
		{
			ID:        uuid.NewString(),
			Type:      notify.TypeDocumentRequired,
			Title:     "Complete your profile",
			Message:   "Upload your transcript and a language certificate to start applying.",
			CreatedAt: time.Now().UTC(),
		},
	}
}
