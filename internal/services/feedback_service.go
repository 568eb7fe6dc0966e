package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/akiharsha/ai-assistant-chatbot/internal/analytics"
	"github.com/akiharsha/ai-assistant-chatbot/internal/cache"
	"github.com/akiharsha/ai-assistant-chatbot/internal/engine"
	"github.com/akiharsha/ai-assistant-chatbot/internal/metrics"
	"github.com/akiharsha/ai-assistant-chatbot/internal/models"
	"github.com/akiharsha/ai-assistant-chatbot/internal/patterns"
	"github.com/akiharsha/ai-assistant-chatbot/internal/store"
	"github.com/akiharsha/ai-assistant-chatbot/internal/utils"
)

const reportKeyPrefix = "feedback:report:"

// Options tunes analytics defaults and report caching.
type Options struct {
	Threshold     float64
	TopDimensions int
	TopIssues     int
	RecentWindow  time.Duration
	ReportTTL     time.Duration
}

// DefaultOptions mirrors the analytics package defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:     analytics.DefaultThreshold,
		TopDimensions: analytics.DefaultTopDimensions,
		TopIssues:     patterns.DefaultTopIssues,
		RecentWindow:  utils.Days(7),
		ReportTTL:     30 * time.Second,
	}
}

// WithDefaults replaces non-positive limits and windows with the defaults.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.Threshold <= 0 {
		o.Threshold = defaults.Threshold
	}
	if o.TopDimensions <= 0 {
		o.TopDimensions = defaults.TopDimensions
	}
	if o.TopIssues <= 0 {
		o.TopIssues = defaults.TopIssues
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = defaults.RecentWindow
	}
	return o
}

// ReportOptions returns report builder options for the normalized limits.
func (o Options) ReportOptions() []engine.ReportOption {
	o = o.WithDefaults()
	return []engine.ReportOption{
		engine.WithThreshold(o.Threshold),
		engine.WithTopDimensions(o.TopDimensions),
		engine.WithTopIssues(o.TopIssues),
	}
}

// FeedbackService is the facade the UI and transports talk to.
type FeedbackService struct {
	logger    *slog.Logger
	store     *store.Store
	builder   *engine.ReportBuilder
	cache     cache.Provider
	opts      Options
	latencies *utils.LatencyTracker
}

// NewFeedbackService wires the store, report builder and cache. A nil
// builder gets one configured from opts; a nil cache disables caching.
func NewFeedbackService(logger *slog.Logger, st *store.Store, builder *engine.ReportBuilder, provider cache.Provider, opts Options) *FeedbackService {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.WithDefaults()
	if builder == nil {
		builder = engine.NewReportBuilder(logger, append(opts.ReportOptions(),
			engine.WithMiner(patterns.NewMiner(logger, IssueMetricsSink())))...)
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	metrics.SetStoreRecords(st.Len())
	return &FeedbackService{
		logger:    logger,
		store:     st,
		builder:   builder,
		cache:     provider,
		opts:      opts,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// IssueMetricsSink publishes the number of distinct mined issues.
func IssueMetricsSink() patterns.Sink {
	return patterns.SinkFunc(func(_ context.Context, issues []patterns.IssueFrequency) error {
		metrics.SetDistinctIssues(len(issues))
		return nil
	})
}

// Store exposes the underlying store.
func (s *FeedbackService) Store() *store.Store { return s.store }

// CreateFeedback validates, stores and persists a submission. A
// *models.ValidationError means nothing was stored. A *models.StorageError
// comes with a valid record: the feedback is held in memory but not durable.
func (s *FeedbackService) CreateFeedback(ctx context.Context, in models.Input) (models.Record, error) {
	rec, err := s.store.Create(ctx, in)
	var (
		validationErr *models.ValidationError
		storageErr    *models.StorageError
	)
	switch {
	case err == nil:
		metrics.ObserveSubmission(string(rec.Language), metrics.OutcomeSuccess)
		s.logger.Debug("feedback stored", slog.String("feedback_id", rec.FeedbackID), slog.String("language", string(rec.Language)))
	case errors.As(err, &validationErr):
		lang := ""
		if in.Language.Valid() {
			lang = string(in.Language)
		}
		metrics.ObserveSubmission(lang, metrics.OutcomeInvalid)
		s.logger.Debug("feedback rejected", slog.Any("fields", validationErr.Fields()))
	case errors.As(err, &storageErr):
		metrics.ObserveSubmission(string(rec.Language), metrics.OutcomeUnpersisted)
		s.logger.Warn("feedback not persisted", slog.String("feedback_id", rec.FeedbackID), slog.Any("error", err))
	default:
		s.logger.Error("feedback create failed", slog.Any("error", err))
	}
	metrics.SetStoreRecords(s.store.Len())
	return rec, err
}

// OverallMetrics aggregates every record.
func (s *FeedbackService) OverallMetrics() models.Metrics {
	return analytics.Overall(s.store.Records())
}

// LanguageBreakdown aggregates per language, always over the full language set.
func (s *FeedbackService) LanguageBreakdown() map[models.Language]models.Metrics {
	return analytics.ByLanguage(s.store.Records())
}

// InteractionTypeBreakdown aggregates per interaction type.
func (s *FeedbackService) InteractionTypeBreakdown() map[models.InteractionType]models.Metrics {
	return analytics.ByInteractionType(s.store.Records())
}

// ImprovementAreas returns the weakest dimensions. Non-positive arguments
// select the configured defaults.
func (s *FeedbackService) ImprovementAreas(threshold float64, topN int) []models.Dimension {
	if threshold <= 0 {
		threshold = s.opts.Threshold
	}
	if topN <= 0 {
		topN = s.opts.TopDimensions
	}
	return analytics.WeakestDimensions(s.store.Records(), threshold, topN)
}

// CommonIssues returns the most frequent issue strings; a non-positive topN
// selects the configured default.
func (s *FeedbackService) CommonIssues(topN int) []string {
	if topN <= 0 {
		topN = s.opts.TopIssues
	}
	return patterns.CommonIssues(s.store.Records(), topN)
}

// ListFeedback returns the records matching filter in arrival order.
func (s *FeedbackService) ListFeedback(filter models.Filter) []models.Record {
	return s.store.Query(filter)
}

// RecentFeedback returns the records no older than window; a non-positive
// window selects the configured default.
func (s *FeedbackService) RecentFeedback(window time.Duration) []models.Record {
	if window <= 0 {
		window = s.opts.RecentWindow
	}
	return s.store.Recent(window)
}

// GenerateReport returns a snapshot report. Reports are cached per store
// fingerprint; cache failures are logged and never surface.
func (s *FeedbackService) GenerateReport(ctx context.Context) models.Report {
	start := time.Now()
	records, fingerprint := s.store.Snapshot()
	key := reportKeyPrefix + fingerprint

	var cached models.Report
	err := cache.GetJSON(ctx, s.cache, key, &cached)
	if err == nil {
		s.observeReport(time.Since(start), true)
		return cached
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("report cache read failed", slog.Any("error", err))
	}

	report := s.builder.BuildFrom(ctx, records)
	if err := cache.SetJSON(ctx, s.cache, key, report, s.opts.ReportTTL); err != nil {
		s.logger.Warn("report cache write failed", slog.Any("error", err))
	}
	s.observeReport(time.Since(start), false)
	return report
}

func (s *FeedbackService) observeReport(duration time.Duration, cached bool) {
	metrics.ObserveReport(duration, cached)
	s.latencies.Observe(duration)
	if total := s.latencies.Total(); total >= 20 && total%20 == 0 {
		summary := s.latencies.Summary()
		s.logger.Info("report latency", slog.Duration("p95", summary.P95), slog.Int("samples", summary.Samples))
	}
}

// Charts renders the text charts for the current report.
func (s *FeedbackService) Charts(ctx context.Context) string {
	report := s.GenerateReport(ctx)
	return engine.RenderRatingDistribution(report) + "\n" + engine.RenderLanguagePerformance(report)
}
