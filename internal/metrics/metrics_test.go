package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestRegistryRecordsCycleMetrics(t *testing.T) {
	preg := prometheus.NewRegistry()
	r := NewRegistry(preg)

	r.CycleRuns.WithLabelValues("post_close", "ok").Inc()
	r.CycleRuns.WithLabelValues("post_close", "ok").Inc()
	r.CycleRuns.WithLabelValues("intraday", "error").Inc()
	r.CohortSize.WithLabelValues("post_close").Set(12)
	r.GuardFires.WithLabelValues("whipsaw").Inc()
	r.ScoreValue.WithLabelValues("AAPL", "intraday").Set(0.74)
	r.CycleDuration.WithLabelValues("post_close").Observe(3.2)

	families := gather(t, preg)

	runs := families["earnscope_cycle_runs_total"]
	require.NotNil(t, runs)
	assert.Equal(t, dto.MetricType_COUNTER, runs.GetType())
	require.Len(t, runs.GetMetric(), 2)
	for _, m := range runs.GetMetric() {
		labels := map[string]string{}
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		switch labels["phase"] {
		case "post_close":
			assert.Equal(t, "ok", labels["outcome"])
			assert.Equal(t, 2.0, m.GetCounter().GetValue())
		case "intraday":
			assert.Equal(t, "error", labels["outcome"])
			assert.Equal(t, 1.0, m.GetCounter().GetValue())
		default:
			t.Fatalf("unexpected phase label %q", labels["phase"])
		}
	}

	cohort := families["earnscope_cohort_size"]
	require.NotNil(t, cohort)
	require.Len(t, cohort.GetMetric(), 1)
	assert.Equal(t, 12.0, cohort.GetMetric()[0].GetGauge().GetValue())

	score := families["earnscope_score"]
	require.NotNil(t, score)
	assert.Equal(t, 0.74, score.GetMetric()[0].GetGauge().GetValue())

	dur := families["earnscope_cycle_duration_seconds"]
	require.NotNil(t, dur)
	hist := dur.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 3.2, hist.GetSampleSum(), 1e-9)
}

func TestRegistryDoubleRegisterPanics(t *testing.T) {
	preg := prometheus.NewRegistry()
	NewRegistry(preg)
	assert.Panics(t, func() { NewRegistry(preg) })
}
