package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

func vec(symbol string, rr *float64) *domain.RawSignalVector {
	return &domain.RawSignalVector{
		Symbol:          symbol,
		TradeDate:       time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
		AsOf:            time.Date(2026, 8, 24, 16, 30, 0, 0, time.UTC),
		RiskReversal25D: rr,
	}
}

func TestCohort_ZScoreProperties(t *testing.T) {
	vectors := []*domain.RawSignalVector{
		vec("A", domain.Float(0.10)),
		vec("B", domain.Float(0.02)),
		vec("C", domain.Float(-0.05)),
		vec("D", domain.Float(0.04)),
		vec("E", domain.Float(-0.11)),
	}

	out := Cohort(vectors, domain.DailySignals(), Config{})
	require.Len(t, out, len(vectors))

	var sum, sumSq float64
	for _, nv := range out {
		z := nv.Z(domain.SignalRR25D)
		require.NotNil(t, z)
		assert.LessOrEqual(t, math.Abs(*z), DefaultWinsorStd)
		sum += *z
		sumSq += *z * *z
	}
	n := float64(len(out))
	mean := sum / n
	std := math.Sqrt((sumSq - n*mean*mean) / (n - 1))
	assert.InDelta(t, 0.0, mean, 0.05)
	assert.InDelta(t, 1.0, std, 0.1)
}

func TestCohort_PreservesOrderAndNils(t *testing.T) {
	vectors := []*domain.RawSignalVector{
		vec("B", domain.Float(0.10)),
		vec("A", nil),
		vec("C", domain.Float(-0.10)),
	}

	out := Cohort(vectors, domain.DailySignals(), Config{})
	require.Len(t, out, 3)
	assert.Equal(t, "B", out[0].Symbol)
	assert.Equal(t, "A", out[1].Symbol)
	assert.Equal(t, "C", out[2].Symbol)

	// The nil input stays nil; it is never imputed.
	assert.Nil(t, out[1].Z(domain.SignalRR25D))
	assert.Nil(t, out[1].Pct(domain.SignalRR25D))
	assert.NotNil(t, out[0].Z(domain.SignalRR25D))
}

func TestCohort_DegenerateFields(t *testing.T) {
	t.Run("single observation", func(t *testing.T) {
		vectors := []*domain.RawSignalVector{
			vec("A", domain.Float(0.10)),
			vec("B", nil),
		}
		out := Cohort(vectors, domain.DailySignals(), Config{})
		z := out[0].Z(domain.SignalRR25D)
		require.NotNil(t, z)
		assert.Equal(t, 0.0, *z)
	})

	t.Run("zero variance", func(t *testing.T) {
		vectors := []*domain.RawSignalVector{
			vec("A", domain.Float(0.10)),
			vec("B", domain.Float(0.10)),
			vec("C", domain.Float(0.10)),
		}
		out := Cohort(vectors, domain.DailySignals(), Config{})
		for _, nv := range out {
			z := nv.Z(domain.SignalRR25D)
			require.NotNil(t, z)
			assert.Equal(t, 0.0, *z)
		}
	})
}

func TestCohort_WinsorClipsOutliers(t *testing.T) {
	// Nine clustered values and one extreme: the outlier's raw z is about
	// 2.85, past the default bound.
	var vectors []*domain.RawSignalVector
	for _, sym := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"} {
		vectors = append(vectors, vec(sym, domain.Float(0.01)))
	}
	vectors = append(vectors, vec("J", domain.Float(50.0)))

	out := Cohort(vectors, domain.DailySignals(), Config{})
	z := out[9].Z(domain.SignalRR25D)
	require.NotNil(t, z)
	assert.InDelta(t, DefaultWinsorStd, *z, 1e-9)
}

func TestPercentileRanks(t *testing.T) {
	pcts := percentileRanks([]float64{10, 30, 20})
	// Average rank over n, so ranks land in (0, 1].
	assert.InDelta(t, 1.0/3, pcts[0], 1e-9)
	assert.InDelta(t, 3.0/3, pcts[1], 1e-9)
	assert.InDelta(t, 2.0/3, pcts[2], 1e-9)
}

func TestPercentileRanks_TiesShareAverageRank(t *testing.T) {
	pcts := percentileRanks([]float64{5, 5, 1, 9})
	assert.InDelta(t, 2.5/4, pcts[0], 1e-9)
	assert.InDelta(t, 2.5/4, pcts[1], 1e-9)
	assert.InDelta(t, 1.0/4, pcts[2], 1e-9)
	assert.InDelta(t, 4.0/4, pcts[3], 1e-9)
}

func TestCohort_Deterministic(t *testing.T) {
	build := func() []*domain.RawSignalVector {
		return []*domain.RawSignalVector{
			vec("A", domain.Float(0.10)),
			vec("B", domain.Float(-0.02)),
			vec("C", domain.Float(0.07)),
		}
	}
	a := Cohort(build(), domain.DailySignals(), Config{})
	b := Cohort(build(), domain.DailySignals(), Config{})
	for i := range a {
		assert.Equal(t, *a[i].Z(domain.SignalRR25D), *b[i].Z(domain.SignalRR25D))
		assert.Equal(t, *a[i].Pct(domain.SignalRR25D), *b[i].Pct(domain.SignalRR25D))
	}
}
