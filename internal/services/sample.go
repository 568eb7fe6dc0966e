package services

import (
	"context"
	"errors"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// SampleInputs returns the demonstration feedback shipped with the assistant.
func SampleInputs() []models.Input {
	return []models.Input{
		{
			UserID:          "user_001",
			Rating:          5,
			Language:        models.LanguageHindi,
			InteractionType: models.InteractionTranslation,
			Comments:        "बहुत अच्छा अनुवाद मिला। सही व्याकरण और सांस्कृतिक संदर्भ।",
			Scores: models.Scores{
				ResponseQuality:     5,
				CulturalSensitivity: 5,
				LanguageAccuracy:    5,
				Helpfulness:         5,
				ResponseSpeed:       4,
				UserSatisfaction:    5,
			},
			WouldRecommend:         true,
			ImprovementSuggestions: "थोड़ा तेज़ response हो सकता है",
		},
		{
			UserID:          "user_002",
			Rating:          4,
			Language:        models.LanguageTelugu,
			InteractionType: models.InteractionLearning,
			Comments:        "తెలుగు వ్యాకరణం గురించి బాగా వివరించారు. కొంచెం ఎక్కువ ఉదాహరణలు ఇవ్వవచ్చు.",
			Scores: models.Scores{
				ResponseQuality:     4,
				CulturalSensitivity: 5,
				LanguageAccuracy:    4,
				Helpfulness:         4,
				ResponseSpeed:       5,
				UserSatisfaction:    4,
			},
			WouldRecommend:         true,
			ImprovementSuggestions: "మరిన్ని ఉదాహరణలు జోడించండి",
		},
		{
			UserID:          "user_003",
			Rating:          5,
			Language:        models.LanguageEnglish,
			InteractionType: models.InteractionCultural,
			Comments:        "Great cultural insights! Helped me understand Hindi festivals better.",
			Scores: models.Scores{
				ResponseQuality:     5,
				CulturalSensitivity: 5,
				LanguageAccuracy:    5,
				Helpfulness:         5,
				ResponseSpeed:       5,
				UserSatisfaction:    5,
			},
			WouldRecommend: true,
		},
	}
}

// SeedSample stores the demonstration feedback. Records already persisted
// are kept; a storage warning from any submission is returned after all
// samples were attempted.
func (s *FeedbackService) SeedSample(ctx context.Context) ([]models.Record, error) {
	var (
		created []models.Record
		warning error
	)
	for _, in := range SampleInputs() {
		rec, err := s.CreateFeedback(ctx, in)
		var storageErr *models.StorageError
		switch {
		case err == nil:
		case errors.As(err, &storageErr):
			warning = err
		default:
			return created, err
		}
		created = append(created, rec)
	}
	return created, warning
}
