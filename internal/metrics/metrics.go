package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels feedback that was stored and persisted.
	OutcomeSuccess = "success"
	// OutcomeInvalid labels submissions rejected by validation.
	OutcomeInvalid = "invalid"
	// OutcomeUnpersisted labels feedback kept in memory after a storage failure.
	OutcomeUnpersisted = "unpersisted"
)

const namespace = "feedback_engine"

var (
	submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Feedback submissions, partitioned by language and outcome.",
		},
		[]string{"language", "outcome"},
	)

	persistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Store writes that failed to reach the backend.",
		},
	)

	reportDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_seconds",
			Help:      "Report generation latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"cache"},
	)

	storeRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_records",
			Help:      "Feedback records currently held by the store.",
		},
	)

	distinctIssues = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "distinct_issues",
			Help:      "Distinct issue and suggestion strings seen at the last report.",
		},
	)
)

// Register attaches feedback collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		submissionsTotal,
		persistFailuresTotal,
		reportDurationSeconds,
		storeRecords,
		distinctIssues,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSubmission counts one submission. Unknown outcomes count as success.
func ObserveSubmission(language, outcome string) {
	switch outcome {
	case OutcomeInvalid, OutcomeUnpersisted:
	default:
		outcome = OutcomeSuccess
	}
	if language == "" {
		language = "unknown"
	}
	submissionsTotal.WithLabelValues(language, outcome).Inc()
	if outcome == OutcomeUnpersisted {
		persistFailuresTotal.Inc()
	}
}

// ObserveReport records a report latency; cached reports the cache hit state.
func ObserveReport(duration time.Duration, cached bool) {
	label := "miss"
	if cached {
		label = "hit"
	}
	if duration < 0 {
		duration = 0
	}
	reportDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
}

// SetStoreRecords publishes the current store size.
func SetStoreRecords(n int) {
	storeRecords.Set(float64(n))
}

// SetDistinctIssues publishes how many distinct issue strings were mined.
func SetDistinctIssues(n int) {
	distinctIssues.Set(float64(n))
}
