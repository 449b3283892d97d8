package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation outcomes used as the "outcome" label.
const (
	OutcomeOK           = "ok"
	OutcomeMissingFact  = "missing_fact"
	OutcomeNoVersion    = "no_applicable_version"
	OutcomeUnknownRule  = "unknown_rule"
	OutcomeTypeMismatch = "type_mismatch"
	OutcomeError        = "error"
)

// Metrics provides observability for rule evaluations.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	BatchSize          prometheus.Histogram
	ScenarioMismatches prometheus.Gauge
}

// NewMetrics registers the regelmotor metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() so that repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "regelmotor_evaluations_total",
			Help: "Total number of rule evaluations by logical rule and outcome",
		}, []string{"rule", "outcome"}),
		EvaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "regelmotor_evaluation_duration_seconds",
			Help:    "Duration of resolving and evaluating one rule, including persisting the result",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "regelmotor_batch_size",
			Help:    "Number of grunnlag per batch evaluation request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		ScenarioMismatches: f.NewGauge(prometheus.GaugeOpts{
			Name: "regelmotor_scenario_mismatches",
			Help: "Worked scenarios whose result differed from the expected figure at the last self-check",
		}),
	}
}

// RecordEvaluation counts one evaluation of rule.
func (m *Metrics) RecordEvaluation(rule, outcome string) {
	m.Evaluations.WithLabelValues(rule, outcome).Inc()
}

// ObserveEvaluation records the duration of one evaluation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveEvaluation(start time.Time) {
	m.EvaluationDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveBatch(size int) {
	m.BatchSize.Observe(float64(size))
}
