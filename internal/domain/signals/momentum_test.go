package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

// barSeries builds n daily bars with the given close function.
func barSeries(n int, closeAt func(i int) float64) []domain.Bar {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			Date:   start.AddDate(0, 0, i),
			Close:  closeAt(i),
			Volume: 1_000_000,
		}
	}
	return bars
}

// alternatingBars builds n daily bars whose close alternates between a
// +step and a -step daily return, so the return series actually varies.
func alternatingBars(n int, start, step float64) []domain.Bar {
	closes := make([]float64, n)
	closes[0] = start
	for i := 1; i < n; i++ {
		factor := 1 + step
		if i%2 == 0 {
			factor = 1 - step
		}
		closes[i] = closes[i-1] * factor
	}
	return barSeries(n, func(i int) float64 { return closes[i] })
}

func TestBetaAdjMomentum_PerfectlyCorrelated(t *testing.T) {
	// Sector alternates +1%/-1% daily and the stock moves exactly twice
	// that, so beta = 2 and the adjusted return collapses to zero.
	sector := alternatingBars(60, 100, 0.01)
	stock := alternatingBars(60, 50, 0.02)

	got := BetaAdjMomentum(stock, sector, 3)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, got.Beta, 1e-9)
	assert.InDelta(t, 0.0, got.BetaAdjusted, 1e-9)
}

func TestBetaAdjMomentum_ConstantReturnSector(t *testing.T) {
	// Geometric growth gives a constant daily return whose demeaned
	// variance is pure float rounding noise; the estimate must fall back
	// to beta 1 rather than divide by it.
	sector := barSeries(60, func(i int) float64 { return 100 * pow(1.01, i) })
	stock := barSeries(60, func(i int) float64 { return 50 * pow(1.02, i) })

	got := BetaAdjMomentum(stock, sector, 3)
	require.NotNil(t, got)
	assert.InDelta(t, 1.0, got.Beta, 1e-9)
	assert.InDelta(t, got.StockReturn-got.SectorReturn, got.BetaAdjusted, 1e-9)
}

func TestBetaAdjMomentum_FlatSector(t *testing.T) {
	// A zero-variance sector cannot support a beta estimate; beta falls
	// back to 1 and the signal is the raw excess return.
	sector := barSeries(60, func(int) float64 { return 100 })
	stock := barSeries(60, func(i int) float64 { return 50 + float64(i) })

	got := BetaAdjMomentum(stock, sector, 3)
	require.NotNil(t, got)
	assert.InDelta(t, 1.0, got.Beta, 1e-9)
	assert.InDelta(t, got.StockReturn, got.BetaAdjusted, 1e-9)
}

func TestBetaAdjMomentum_TooShort(t *testing.T) {
	sector := barSeries(10, func(i int) float64 { return 100 + float64(i) })
	stock := barSeries(10, func(i int) float64 { return 50 + float64(i) })
	assert.Nil(t, BetaAdjMomentum(stock, sector, 3))
}

func TestBetaAdjMomentum_MisalignedDates(t *testing.T) {
	sector := barSeries(60, func(i int) float64 { return 100 + float64(i) })
	// Stock series on entirely different dates cannot be joined.
	stock := barSeries(60, func(i int) float64 { return 50 + float64(i) })
	for i := range stock {
		stock[i].Date = stock[i].Date.AddDate(1, 0, 0)
	}
	assert.Nil(t, BetaAdjMomentum(stock, sector, 3))
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
