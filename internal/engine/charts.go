package engine

import (
	"fmt"
	"strings"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// NoDataMessage is rendered instead of a chart when there is no feedback.
const NoDataMessage = "No feedback data available"

const barWidth = 20

// RenderRatingDistribution draws one bar per star rating, five stars first.
func RenderRatingDistribution(report models.Report) string {
	total := 0
	for _, count := range report.RatingDistribution {
		total += count
	}
	if report.RecordCount == 0 || total == 0 {
		return NoDataMessage
	}

	var sb strings.Builder
	sb.WriteString("Rating Distribution:\n")
	for rating := models.MaxScore; rating >= models.MinScore; rating-- {
		count := report.RatingDistribution[rating]
		bar := strings.Repeat("█", count*barWidth/total)
		fmt.Fprintf(&sb, "%d stars: %s (%d)\n", rating, bar, count)
	}
	return sb.String()
}

// RenderLanguagePerformance lists per-language averages for languages with
// at least one record.
func RenderLanguagePerformance(report models.Report) string {
	var sb strings.Builder
	sb.WriteString("Language Performance:\n")
	for _, lang := range models.Languages {
		m := report.ByLanguage[lang]
		if m.Total == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s:\n", lang)
		fmt.Fprintf(&sb, "  Count: %d\n", m.Total)
		fmt.Fprintf(&sb, "  Avg Rating: %.1f/5\n", m.AverageRating)
		fmt.Fprintf(&sb, "  Language Accuracy: %.1f/5\n", m.AverageLanguageAccuracy)
		fmt.Fprintf(&sb, "  Cultural Sensitivity: %.1f/5\n", m.AverageCulturalSensitivity)
		fmt.Fprintf(&sb, "  Recommendation Rate: %.1f%%\n\n", m.RecommendationRate)
	}
	return sb.String()
}
