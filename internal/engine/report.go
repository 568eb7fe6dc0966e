package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/akiharsha/ai-assistant-chatbot/internal/analytics"
	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/patterns"
)

// RecordSource supplies a snapshot of records. *store.Store satisfies it.
type RecordSource interface {
	Records() []models.Record
}

// RecordSlice adapts a plain slice to RecordSource.
type RecordSlice []models.Record

// Records implements RecordSource.
func (s RecordSlice) Records() []models.Record { return s }

// ReportBuilder composes analytics into a Report snapshot.
type ReportBuilder struct {
	logger    *slog.Logger
	threshold float64
	topDims   int
	topIssues int
	rules     *RuleEngine
	miner     *patterns.Miner
	now       func() time.Time
}

// ReportOption customises a ReportBuilder.
type ReportOption func(*ReportBuilder)

// WithThreshold sets the weak-dimension threshold.
func WithThreshold(threshold float64) ReportOption {
	return func(b *ReportBuilder) { b.threshold = threshold }
}

// WithTopDimensions sets how many weak dimensions are reported.
func WithTopDimensions(n int) ReportOption {
	return func(b *ReportBuilder) { b.topDims = n }
}

// WithTopIssues sets how many common issues are reported.
func WithTopIssues(n int) ReportOption {
	return func(b *ReportBuilder) { b.topIssues = n }
}

// WithRules attaches a recommendation rule engine; nil disables recommendations.
func WithRules(rules *RuleEngine) ReportOption {
	return func(b *ReportBuilder) { b.rules = rules }
}

// WithMiner replaces the issue miner.
func WithMiner(miner *patterns.Miner) ReportOption {
	return func(b *ReportBuilder) {
		if miner != nil {
			b.miner = miner
		}
	}
}

// WithReportClock overrides the generated_at clock.
func WithReportClock(now func() time.Time) ReportOption {
	return func(b *ReportBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewReportBuilder constructs a builder with the default thresholds.
func NewReportBuilder(logger *slog.Logger, opts ...ReportOption) *ReportBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &ReportBuilder{
		logger:    logger,
		threshold: analytics.DefaultThreshold,
		topDims:   analytics.DefaultTopDimensions,
		topIssues: patterns.DefaultTopIssues,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.miner == nil {
		b.miner = patterns.NewMiner(logger, nil)
	}
	return b
}

// Build snapshots source once and composes every analytic over it.
func (b *ReportBuilder) Build(ctx context.Context, source RecordSource) models.Report {
	var records []models.Record
	if source != nil {
		records = source.Records()
	}
	return b.BuildFrom(ctx, records)
}

// BuildFrom composes a report over records. The report owns all of its maps
// and slices.
func (b *ReportBuilder) BuildFrom(ctx context.Context, records []models.Record) models.Report {
	report := models.Report{
		Overall:            analytics.Overall(records),
		ByLanguage:         analytics.ByLanguage(records),
		ByInteractionType:  analytics.ByInteractionType(records),
		WeakestDimensions:  analytics.WeakestDimensions(records, b.threshold, b.topDims),
		CommonIssues:       b.miner.Mine(ctx, records, b.topIssues),
		DistinctUserCount:  distinctUsers(records),
		RecordCount:        len(records),
		RatingDistribution: analytics.RatingDistribution(records),
		Recommendations:    make([]string, 0),
		GeneratedAt:        b.now().UTC(),
	}
	if recs := b.rules.Recommend(RecommendInput{
		Overall:           report.Overall,
		ByLanguage:        report.ByLanguage,
		WeakestDimensions: report.WeakestDimensions,
		CommonIssues:      report.CommonIssues,
	}); len(recs) > 0 {
		report.Recommendations = recs
	}

	b.logger.Debug("feedback report built",
		slog.Int("records", report.RecordCount),
		slog.Int("users", report.DistinctUserCount),
		slog.Int("weak_dimensions", len(report.WeakestDimensions)),
	)
	return report
}

func distinctUsers(records []models.Record) int {
	users := make(map[string]struct{}, len(records))
	for _, rec := range records {
		users[rec.UserID] = struct{}{}
	}
	return len(users)
}
