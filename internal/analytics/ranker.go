package analytics

import (
	"sort"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

const (
	// DefaultThreshold is the mean below which a dimension needs improvement.
	DefaultThreshold = 4.0
	// DefaultTopDimensions bounds how many weak dimensions are reported.
	DefaultTopDimensions = 3
)

// DimensionScore pairs a dimension with its mean across a record set.
type DimensionScore struct {
	Dimension models.Dimension `json:"dimension"`
	Mean      float64          `json:"mean"`
}

// DimensionMeans returns the mean of each dimension in declaration order.
// It returns nil for an empty record set.
func DimensionMeans(records []models.Record) []DimensionScore {
	if len(records) == 0 {
		return nil
	}
	overall := Overall(records)
	scores := make([]DimensionScore, 0, len(models.Dimensions))
	for _, d := range models.Dimensions {
		scores = append(scores, DimensionScore{Dimension: d, Mean: overall.Average(d)})
	}
	return scores
}

// WeakestDimensions ranks dimensions by ascending mean, keeps the lowest topN
// and then drops any whose mean is not strictly below threshold. A dimension
// outside the lowest topN is never returned, however low its mean.
func WeakestDimensions(records []models.Record, threshold float64, topN int) []models.Dimension {
	out := make([]models.Dimension, 0)
	if topN <= 0 {
		return out
	}
	scores := DimensionMeans(records)
	if len(scores) == 0 {
		return out
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Mean < scores[j].Mean
	})
	if len(scores) > topN {
		scores = scores[:topN]
	}
	for _, s := range scores {
		if s.Mean < threshold {
			out = append(out, s.Dimension)
		}
	}
	return out
}
