package engine

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// RuleEngine maps weak dimensions, poorly rated languages and reported issues
// to human-readable recommendations.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// Rule represents a single recommendation rule.
type Rule struct {
	ID              string    `yaml:"id"`
	Match           RuleMatch `yaml:"match"`
	Recommendations []string  `yaml:"recommendations"`
}

// RuleMatch defines optional criteria; a rule matches when every non-empty
// criterion holds.
type RuleMatch struct {
	Dimension     string   `yaml:"dimension"`
	Language      string   `yaml:"language"`
	BelowRating   float64  `yaml:"below_rating"`
	IssueContains []string `yaml:"issue_contains"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// RecommendInput is the slice of a report the rules are evaluated against.
type RecommendInput struct {
	Overall           models.Metrics
	ByLanguage        map[models.Language]models.Metrics
	WeakestDimensions []models.Dimension
	CommonIssues      []string
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file does not exist, it returns a nil engine.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return NewRuleEngineFromRules(cfg.Rules, logger), nil
}

// NewRuleEngineFromRules builds an engine from in-memory rules.
func NewRuleEngineFromRules(rules []Rule, logger *slog.Logger) *RuleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("recommendation rules loaded", slog.Int("rules", len(rules)))
	return &RuleEngine{rules: rules, logger: logger}
}

// Len reports how many rules are loaded.
func (e *RuleEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Recommend returns the de-duplicated recommendations of every matching rule,
// in rule order.
func (e *RuleEngine) Recommend(in RecommendInput) []string {
	if e == nil {
		return nil
	}

	matched := make([]string, 0)
	for _, rule := range e.rules {
		if rule.Match.Dimension != "" && !dimensionWeak(rule.Match.Dimension, in.WeakestDimensions) {
			continue
		}
		if rule.Match.Language != "" && !languageObserved(rule.Match.Language, in.ByLanguage) {
			continue
		}
		if rule.Match.BelowRating > 0 && !ratingBelow(rule.Match.BelowRating, rule.Match.Language, in) {
			continue
		}
		if len(rule.Match.IssueContains) > 0 && !issuesContain(rule.Match.IssueContains, in.CommonIssues) {
			continue
		}
		e.logger.Debug("recommendation rule matched", slog.String("rule", rule.ID))
		matched = appendUnique(matched, rule.Recommendations...)
	}
	return matched
}

func dimensionWeak(dimension string, weak []models.Dimension) bool {
	for _, d := range weak {
		if strings.EqualFold(dimension, string(d)) {
			return true
		}
	}
	return false
}

func lookupLanguage(language string, breakdown map[models.Language]models.Metrics) (models.Metrics, bool) {
	for lang, m := range breakdown {
		if strings.EqualFold(language, string(lang)) {
			return m, true
		}
	}
	return models.Metrics{}, false
}

func languageObserved(language string, breakdown map[models.Language]models.Metrics) bool {
	m, ok := lookupLanguage(language, breakdown)
	return ok && m.Total > 0
}

func ratingBelow(limit float64, language string, in RecommendInput) bool {
	m := in.Overall
	if language != "" {
		m, _ = lookupLanguage(language, in.ByLanguage)
	}
	return m.Total > 0 && m.AverageRating < limit
}

func issuesContain(keywords []string, issues []string) bool {
	for _, issue := range issues {
		text := strings.ToLower(issue)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
