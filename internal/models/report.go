package models

import "time"

// Metrics aggregates a set of records. A zero Total means the set was empty
// and every other field is zero; check Total before reading averages.
type Metrics struct {
	Total                      int     `json:"total"`
	AverageRating              float64 `json:"average_rating"`
	AverageResponseQuality     float64 `json:"average_response_quality"`
	AverageCulturalSensitivity float64 `json:"average_cultural_sensitivity"`
	AverageLanguageAccuracy    float64 `json:"average_language_accuracy"`
	AverageHelpfulness         float64 `json:"average_helpfulness"`
	AverageResponseSpeed       float64 `json:"average_response_speed"`
	AverageUserSatisfaction    float64 `json:"average_user_satisfaction"`
	RecommendationRate         float64 `json:"recommendation_rate"`
}

// Average returns the mean recorded for d.
func (m Metrics) Average(d Dimension) float64 {
	switch d {
	case DimensionResponseQuality:
		return m.AverageResponseQuality
	case DimensionCulturalSensitivity:
		return m.AverageCulturalSensitivity
	case DimensionLanguageAccuracy:
		return m.AverageLanguageAccuracy
	case DimensionHelpfulness:
		return m.AverageHelpfulness
	case DimensionResponseSpeed:
		return m.AverageResponseSpeed
	case DimensionUserSatisfaction:
		return m.AverageUserSatisfaction
	default:
		return 0
	}
}

// Report is a point-in-time snapshot of every analytic over a store. It owns
// its maps and slices and is never mutated after construction.
type Report struct {
	Overall            Metrics                     `json:"overall_metrics"`
	ByLanguage         map[Language]Metrics        `json:"language_breakdown"`
	ByInteractionType  map[InteractionType]Metrics `json:"interaction_type_breakdown"`
	WeakestDimensions  []Dimension                 `json:"improvement_areas"`
	CommonIssues       []string                    `json:"common_issues"`
	DistinctUserCount  int                         `json:"total_users"`
	RecordCount        int                         `json:"record_count"`
	RatingDistribution map[int]int                 `json:"rating_distribution"`
	Recommendations    []string                    `json:"recommendations"`
	GeneratedAt        time.Time                   `json:"report_generated"`
}

// Filter narrows a record listing. Zero-valued fields do not filter.
type Filter struct {
	UserID          string
	Language        Language
	InteractionType InteractionType
	Window          time.Duration
}
