package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EvaluationMetrics records cart evaluation outcomes and rule sync
// attempts against the platform.
type EvaluationMetrics struct {
	duration    *prometheus.HistogramVec
	evaluations *prometheus.CounterVec
	syncFailure *prometheus.CounterVec
}

// NewEvaluationMetrics registers the evaluation metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewEvaluationMetrics(reg prometheus.Registerer) *EvaluationMetrics {
	if reg == nil {
		return &EvaluationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evaluation_duration_seconds",
		Help:    "Duration of cart discount evaluations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evaluations_total",
		Help: "Cart discount evaluations by outcome.",
	}, []string{"outcome"})
	syncFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_sync_failures_total",
		Help: "Failed platform discount sync operations.",
	}, []string{"operation"})
	reg.MustRegister(duration, evaluations, syncFailure)
	return &EvaluationMetrics{
		duration:    duration,
		evaluations: evaluations,
		syncFailure: syncFailure,
	}
}

// ObserveEvaluation records one evaluation with its outcome and timing.
func (m *EvaluationMetrics) ObserveEvaluation(outcome string, duration time.Duration) {
	if m == nil || m.evaluations == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.evaluations.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncSyncFailure counts a failed platform sync operation.
func (m *EvaluationMetrics) IncSyncFailure(operation string) {
	if m == nil || m.syncFailure == nil {
		return
	}
	m.syncFailure.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
