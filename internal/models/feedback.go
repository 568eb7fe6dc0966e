package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

// Language is the conversation language a feedback record refers to.
type Language string

const (
	LanguageHindi   Language = "Hindi"
	LanguageTelugu  Language = "Telugu"
	LanguageEnglish Language = "English"
	LanguageMixed   Language = "Mixed"
)

// Languages is the closed language set in breakdown order.
var Languages = []Language{LanguageHindi, LanguageTelugu, LanguageEnglish, LanguageMixed}

// Valid reports whether l belongs to the closed language set.
func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}
	return false
}

// InteractionType classifies what the user was doing with the assistant.
type InteractionType string

const (
	InteractionTranslation InteractionType = "translation"
	InteractionLearning    InteractionType = "learning"
	InteractionGeneral     InteractionType = "general"
	InteractionCultural    InteractionType = "cultural"
)

// InteractionTypes is the closed interaction-type set in breakdown order.
var InteractionTypes = []InteractionType{InteractionTranslation, InteractionLearning, InteractionGeneral, InteractionCultural}

// Valid reports whether t belongs to the closed interaction-type set.
func (t InteractionType) Valid() bool {
	for _, known := range InteractionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Dimension names one of the six quality sub-scores.
type Dimension string

const (
	DimensionResponseQuality     Dimension = "response_quality"
	DimensionCulturalSensitivity Dimension = "cultural_sensitivity"
	DimensionLanguageAccuracy    Dimension = "language_accuracy"
	DimensionHelpfulness         Dimension = "helpfulness"
	DimensionResponseSpeed       Dimension = "response_speed"
	DimensionUserSatisfaction    Dimension = "user_satisfaction"
)

// Dimensions lists the sub-scores in declaration order. Rankings break ties by this order.
var Dimensions = []Dimension{
	DimensionResponseQuality,
	DimensionCulturalSensitivity,
	DimensionLanguageAccuracy,
	DimensionHelpfulness,
	DimensionResponseSpeed,
	DimensionUserSatisfaction,
}

// Label renders the dimension for humans, e.g. "Response Speed".
func (d Dimension) Label() string {
	words := strings.Split(string(d), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

const (
	// MinScore is the lowest accepted rating or sub-score.
	MinScore = 1
	// MaxScore is the highest accepted rating or sub-score.
	MaxScore = 5
)

// Scores carries the six quality sub-scores of a record.
type Scores struct {
	ResponseQuality     int `json:"response_quality" validate:"min=1,max=5"`
	CulturalSensitivity int `json:"cultural_sensitivity" validate:"min=1,max=5"`
	LanguageAccuracy    int `json:"language_accuracy" validate:"min=1,max=5"`
	Helpfulness         int `json:"helpfulness" validate:"min=1,max=5"`
	ResponseSpeed       int `json:"response_speed" validate:"min=1,max=5"`
	UserSatisfaction    int `json:"user_satisfaction" validate:"min=1,max=5"`
}

// Get returns the score for d, or zero for an unknown dimension.
func (s Scores) Get(d Dimension) int {
	switch d {
	case DimensionResponseQuality:
		return s.ResponseQuality
	case DimensionCulturalSensitivity:
		return s.CulturalSensitivity
	case DimensionLanguageAccuracy:
		return s.LanguageAccuracy
	case DimensionHelpfulness:
		return s.Helpfulness
	case DimensionResponseSpeed:
		return s.ResponseSpeed
	case DimensionUserSatisfaction:
		return s.UserSatisfaction
	default:
		return 0
	}
}

// Record is one user's evaluation of one assistant interaction. Records are
// values; editing feedback means submitting a new record.
type Record struct {
	FeedbackID      string          `json:"feedback_id" validate:"required"`
	UserID          string          `json:"user_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Rating          int             `json:"rating" validate:"min=1,max=5"`
	Language        Language        `json:"language_used" validate:"oneof=Hindi Telugu English Mixed"`
	InteractionType InteractionType `json:"interaction_type" validate:"oneof=translation learning general cultural"`
	Comments        string          `json:"comments"`
	Scores
	WouldRecommend         bool   `json:"would_recommend"`
	ImprovementSuggestions string `json:"improvement_suggestions"`
	TechnicalIssues        string `json:"technical_issues"`
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as the naive ISO-8601
// form ("2024-05-01T10:20:30.123456") found in older feedback files.
func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	aux := struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ts, err := utils.ParseTimestamp(aux.Timestamp)
	if err != nil {
		return fmt.Errorf("feedback %q: %w", r.FeedbackID, err)
	}
	r.Timestamp = ts
	return nil
}

// Input holds the caller-supplied part of a feedback submission.
type Input struct {
	UserID          string          `json:"user_id"`
	Rating          int             `json:"rating"`
	Language        Language        `json:"language_used"`
	InteractionType InteractionType `json:"interaction_type"`
	Comments        string          `json:"comments"`
	Scores
	WouldRecommend         bool   `json:"would_recommend"`
	ImprovementSuggestions string `json:"improvement_suggestions"`
	TechnicalIssues        string `json:"technical_issues"`
}

// DefaultInput returns an Input with every sub-score at 5 and a positive
// recommendation, the defaults applied to omitted fields.
func DefaultInput() Input {
	return Input{
		Scores: Scores{
			ResponseQuality:     MaxScore,
			CulturalSensitivity: MaxScore,
			LanguageAccuracy:    MaxScore,
			Helpfulness:         MaxScore,
			ResponseSpeed:       MaxScore,
			UserSatisfaction:    MaxScore,
		},
		WouldRecommend: true,
	}
}

// NewRecord builds and validates a record from in. The id and timestamp are
// supplied by the caller so stores control generation.
func NewRecord(in Input, id string, at time.Time) (Record, error) {
	rec := Record{
		FeedbackID:             id,
		UserID:                 in.UserID,
		Timestamp:              at.UTC(),
		Rating:                 in.Rating,
		Language:               in.Language,
		InteractionType:        in.InteractionType,
		Comments:               in.Comments,
		Scores:                 in.Scores,
		WouldRecommend:         in.WouldRecommend,
		ImprovementSuggestions: in.ImprovementSuggestions,
		TechnicalIssues:        in.TechnicalIssues,
	}
	if err := ValidateRecord(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
