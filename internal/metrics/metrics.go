// Package metrics holds the Prometheus instrumentation for the scoring
// pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all pipeline metrics.
type Registry struct {
	CycleDuration *prometheus.HistogramVec
	CycleRuns     *prometheus.CounterVec
	SymbolResults *prometheus.CounterVec
	CohortSize    *prometheus.GaugeVec
	GuardFires    *prometheus.CounterVec
	ScoreValue    *prometheus.GaugeVec
}

// NewRegistry creates the metric set and registers it with reg. Passing nil
// registers with the default registry.
func NewRegistry(reg prometheus.Registerer) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Registry{
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "earnscope_cycle_duration_seconds",
				Help:    "Wall time of one scoring cycle",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"phase"},
		),
		CycleRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnscope_cycle_runs_total",
				Help: "Scoring cycles by phase and outcome",
			},
			[]string{"phase", "outcome"},
		),
		SymbolResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnscope_symbol_results_total",
				Help: "Per-symbol cycle results by status",
			},
			[]string{"phase", "status"},
		),
		CohortSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "earnscope_cohort_size",
				Help: "Symbols entering the last normalization pass",
			},
			[]string{"phase"},
		),
		GuardFires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnscope_guard_fires_total",
				Help: "Guardrail activations by guard name",
			},
			[]string{"guard"},
		),
		ScoreValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "earnscope_score",
				Help: "Latest directional score per symbol",
			},
			[]string{"symbol", "phase"},
		),
	}
	reg.MustRegister(
		r.CycleDuration, r.CycleRuns, r.SymbolResults,
		r.CohortSize, r.GuardFires, r.ScoreValue,
	)
	return r
}
