// Package analytics computes aggregate quality statistics over feedback
// records. Every function is total: empty input yields zero-valued output.
package analytics

import "github.com/akiharsha/ai-assistant-chatbot/internal/models"

// Overall averages the rating and every dimension over records and reports
// the share of recommenders as a percentage. An empty input returns the zero
// Metrics, whose Total of 0 marks the averages as absent.
func Overall(records []models.Record) models.Metrics {
	if len(records) == 0 {
		return models.Metrics{}
	}

	var (
		rating      int
		sums        [6]int
		recommended int
	)
	for _, rec := range records {
		rating += rec.Rating
		for i, d := range models.Dimensions {
			sums[i] += rec.Get(d)
		}
		if rec.WouldRecommend {
			recommended++
		}
	}

	n := float64(len(records))
	mean := func(sum int) float64 { return float64(sum) / n }
	return models.Metrics{
		Total:                      len(records),
		AverageRating:              mean(rating),
		AverageResponseQuality:     mean(sums[0]),
		AverageCulturalSensitivity: mean(sums[1]),
		AverageLanguageAccuracy:    mean(sums[2]),
		AverageHelpfulness:         mean(sums[3]),
		AverageResponseSpeed:       mean(sums[4]),
		AverageUserSatisfaction:    mean(sums[5]),
		RecommendationRate:         float64(recommended) / n * 100,
	}
}

// ByLanguage returns Metrics for every known language, including those with
// no records.
func ByLanguage(records []models.Record) map[models.Language]models.Metrics {
	groups := make(map[models.Language][]models.Record, len(models.Languages))
	for _, rec := range records {
		groups[rec.Language] = append(groups[rec.Language], rec)
	}
	out := make(map[models.Language]models.Metrics, len(models.Languages))
	for _, lang := range models.Languages {
		out[lang] = Overall(groups[lang])
	}
	return out
}

// ByInteractionType returns Metrics for every known interaction type,
// including those with no records.
func ByInteractionType(records []models.Record) map[models.InteractionType]models.Metrics {
	groups := make(map[models.InteractionType][]models.Record, len(models.InteractionTypes))
	for _, rec := range records {
		groups[rec.InteractionType] = append(groups[rec.InteractionType], rec)
	}
	out := make(map[models.InteractionType]models.Metrics, len(models.InteractionTypes))
	for _, kind := range models.InteractionTypes {
		out[kind] = Overall(groups[kind])
	}
	return out
}

// RatingDistribution counts records per overall rating. Keys 1 through 5 are
// always present; out-of-range ratings are ignored.
func RatingDistribution(records []models.Record) map[int]int {
	out := make(map[int]int, models.MaxScore)
	for score := models.MinScore; score <= models.MaxScore; score++ {
		out[score] = 0
	}
	for _, rec := range records {
		if _, ok := out[rec.Rating]; ok {
			out[rec.Rating]++
		}
	}
	return out
}
