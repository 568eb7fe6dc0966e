// Package testutil builds realistic feedback for tests and local load runs.
package testutil

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// Epoch is a fixed reference instant for deterministic fixtures.
var Epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var issuePool = []string{
	"",
	"",
	"Slow response",
	"Transliteration broke mid-sentence",
	"Script switched to Latin",
	"Timeout on long prompts",
}

var suggestionPool = []string{
	"",
	"Faster responses",
	"More regional idioms",
	"Explain grammar step by step",
	"थोड़ा तेज़ response हो सकता है",
}

// NewFaker returns a deterministic faker for seed.
func NewFaker(seed int64) *gofakeit.Faker {
	return gofakeit.New(seed)
}

// Input returns a valid submission with random scores and text.
func Input(f *gofakeit.Faker) models.Input {
	score := func() int { return f.IntRange(models.MinScore, models.MaxScore) }
	return models.Input{
		UserID:          "user_" + f.DigitN(3),
		Rating:          score(),
		Language:        models.Languages[f.IntRange(0, len(models.Languages)-1)],
		InteractionType: models.InteractionTypes[f.IntRange(0, len(models.InteractionTypes)-1)],
		Comments:        f.Sentence(8),
		Scores: models.Scores{
			ResponseQuality:     score(),
			CulturalSensitivity: score(),
			LanguageAccuracy:    score(),
			Helpfulness:         score(),
			ResponseSpeed:       score(),
			UserSatisfaction:    score(),
		},
		WouldRecommend:         f.Bool(),
		ImprovementSuggestions: f.RandomString(suggestionPool),
		TechnicalIssues:        f.RandomString(issuePool),
	}
}

// Record returns a valid record timestamped at.
func Record(f *gofakeit.Faker, at time.Time) models.Record {
	rec, err := models.NewRecord(Input(f), f.UUID(), at)
	if err != nil {
		panic(err)
	}
	return rec
}

// Records returns n records spaced one minute apart, ending at end.
func Records(f *gofakeit.Faker, n int, end time.Time) []models.Record {
	out := make([]models.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Record(f, end.Add(-time.Duration(n-1-i)*time.Minute)))
	}
	return out
}
