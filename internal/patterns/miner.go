package patterns

import (
	"context"
	"log/slog"
	"sort"

	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
)

// DefaultTopIssues bounds the common issues list.
const DefaultTopIssues = 5

// IssueFrequency is one distinct issue or suggestion string and how often it
// was reported.
type IssueFrequency struct {
	Text      string `json:"text"`
	Count     int    `json:"count"`
	FirstSeen int    `json:"first_seen"`
}

// Sink receives mined issue frequencies.
type Sink interface {
	StoreIssues(ctx context.Context, issues []IssueFrequency) error
}

// MineIssues counts every non-empty technical issue and improvement
// suggestion, per record in that order. Strings are compared exactly; no
// trimming or case folding. The result is sorted by descending count with
// ties kept in first-seen order.
func MineIssues(records []models.Record) []IssueFrequency {
	index := make(map[string]int)
	var issues []IssueFrequency
	observe := func(text string) {
		if text == "" {
			return
		}
		if i, ok := index[text]; ok {
			issues[i].Count++
			return
		}
		index[text] = len(issues)
		issues = append(issues, IssueFrequency{Text: text, Count: 1, FirstSeen: len(issues)})
	}
	for _, rec := range records {
		observe(rec.TechnicalIssues)
		observe(rec.ImprovementSuggestions)
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Count > issues[j].Count
	})
	return issues
}

// CommonIssues returns the topN most frequent distinct issue strings.
func CommonIssues(records []models.Record, topN int) []string {
	out := make([]string, 0)
	if topN <= 0 {
		return out
	}
	for _, issue := range MineIssues(records) {
		if len(out) == topN {
			break
		}
		out = append(out, issue.Text)
	}
	return out
}

// Miner wraps MineIssues and forwards results to an optional sink.
type Miner struct {
	sink   Sink
	logger *slog.Logger
}

// NewMiner constructs a Miner; sink may be nil.
func NewMiner(logger *slog.Logger, sink Sink) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{sink: sink, logger: logger}
}

// Mine returns the topN common issues of records. Sink failures are logged
// and do not affect the result.
func (m *Miner) Mine(ctx context.Context, records []models.Record, topN int) []string {
	issues := MineIssues(records)
	if m.sink != nil {
		if err := m.sink.StoreIssues(ctx, issues); err != nil {
			m.logger.Warn("issue sink failed", slog.Any("error", err))
		}
	}

	out := make([]string, 0)
	if topN <= 0 {
		return out
	}
	for _, issue := range issues {
		if len(out) == topN {
			break
		}
		out = append(out, issue.Text)
	}
	return out
}
