// Package nowcast maintains the intraday smoothed score per symbol and
// applies the live-trading guards. Smoothing state is scoped to one trade
// date; a new day always starts from the first raw score of that day.
package nowcast

import (
	"errors"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

// DefaultAlpha is the EWMA smoothing factor for intraday scores.
const DefaultAlpha = 0.3

// ErrStaleUpdate rejects an update whose timestamp does not advance the
// stored state. Out-of-order cycles must not rewind the smoothed series.
var ErrStaleUpdate = errors.New("nowcast: update timestamp not after stored state")

// Advance folds a raw score into the per-day EWMA. A nil prior state, or a
// prior state from a different trade date, seeds the series with the raw
// score itself.
func Advance(prior *domain.EWMAState, symbol string, asof time.Time, raw float64, alpha float64) (*domain.EWMAState, error) {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	day := domain.DateOf(asof)

	if prior == nil || !domain.SameDate(prior.TradeDate, day) {
		return &domain.EWMAState{
			Symbol:    symbol,
			TradeDate: day,
			Smoothed:  raw,
			LastRaw:   raw,
			Alpha:     alpha,
			UpdatedAt: asof,
		}, nil
	}
	if !asof.After(prior.UpdatedAt) {
		return nil, ErrStaleUpdate
	}

	return &domain.EWMAState{
		Symbol:    symbol,
		TradeDate: day,
		Smoothed:  alpha*raw + (1-alpha)*prior.Smoothed,
		LastRaw:   raw,
		Alpha:     alpha,
		UpdatedAt: asof,
	}, nil
}
