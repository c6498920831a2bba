// Package metrics holds the Prometheus instruments for the compliance
// engine's evaluation and catalog paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	Violations         prometheus.Counter
	BlockedActions     prometheus.Counter
	CatalogFailures    prometheus.Counter
	EvaluationDuration prometheus.Histogram
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on the given registerer. Tests pass their own
// registry so repeated construction does not collide.
func NewWith(r prometheus.Registerer) *Metrics {
	factory := promauto.With(r)
	return &Metrics{
		Evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_evaluations_total",
			Help: "Validation calls, labeled by verdict outcome.",
		}, []string{"outcome"}),
		Violations: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_violations_total",
			Help: "Fired rules classified as violations across all verdicts.",
		}),
		BlockedActions: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_blocked_actions_total",
			Help: "Categories hard-stopped at BLOCK_ACTION severity.",
		}),
		CatalogFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "compliance_catalog_fetch_failures_total",
			Help: "Rule catalog fetches that failed and aborted an evaluation.",
		}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "compliance_evaluation_duration_seconds",
			Help:    "Wall time of a full validation call including the catalog fetch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveEvaluation records one completed validation call.
func (m *Metrics) ObserveEvaluation(valid bool, violations, blocked int, elapsed time.Duration) {
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
	m.Violations.Add(float64(violations))
	m.BlockedActions.Add(float64(blocked))
	m.EvaluationDuration.Observe(elapsed.Seconds())
}
