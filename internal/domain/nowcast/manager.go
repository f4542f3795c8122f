package nowcast

import (
	"context"
	"fmt"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/domain/scoring"
)

// Manager folds raw intraday scores into the persisted EWMA series and
// applies the live-trading guards to the result.
type Manager struct {
	store  StateStore
	alpha  float64
	guards GuardConfig
	th     scoring.Thresholds
}

// NewManager builds a manager over the given store. A non-positive alpha
// selects the default.
func NewManager(store StateStore, alpha float64, guards GuardConfig, th scoring.Thresholds) *Manager {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Manager{store: store, alpha: alpha, guards: guards, th: th}
}

// Update smooths the score's raw value into the symbol's day series,
// rewrites score.Smoothed, applies guards, and persists the advanced state.
// Stale updates return ErrStaleUpdate and leave both score and state
// untouched.
func (m *Manager) Update(ctx context.Context, score *domain.DirectionalScore, in GuardInputs) ([]GuardResult, error) {
	prior, err := m.store.Get(ctx, domain.DateOf(score.AsOf), score.Symbol)
	if err != nil {
		return nil, err
	}

	next, err := Advance(prior, score.Symbol, score.AsOf, score.Score, m.alpha)
	if err != nil {
		return nil, fmt.Errorf("nowcast update for %s: %w", score.Symbol, err)
	}

	score.Smoothed = domain.Float(next.Smoothed)
	if prior != nil && domain.SameDate(prior.TradeDate, next.TradeDate) {
		in.PrevSmoothed = domain.Float(prior.Smoothed)
	} else {
		in.PrevSmoothed = nil
	}
	in.Smoothed = next.Smoothed

	// Decision, conviction, and structure follow the smoothed score, not
	// the raw one: a single noisy cycle must not flip the book.
	m.redecide(score, next.Smoothed)
	results := ApplyGuards(score, in, m.guards)

	if err := m.store.Put(ctx, next); err != nil {
		return results, err
	}
	return results, nil
}

// redecide re-resolves decision and conviction from the smoothed score,
// keeping the structure chosen from the IV percentile track.
func (m *Manager) redecide(score *domain.DirectionalScore, smoothed float64) {
	abs := smoothed
	if abs < 0 {
		abs = -abs
	}
	if smoothed >= 0 {
		score.Direction = domain.DecisionCall
	} else {
		score.Direction = domain.DecisionPut
	}
	switch {
	case abs < m.th.Mid:
		score.Decision = domain.DecisionPass
		score.Structure = domain.StructureSkip
		score.Conviction = domain.ConvictionLow
	case abs >= m.th.High:
		score.Decision = score.Direction
		score.Conviction = domain.ConvictionHigh
	default:
		score.Decision = score.Direction
		score.Conviction = domain.ConvictionMedium
		if score.Structure == domain.StructureNaked {
			score.Structure = domain.StructureVertical
		}
	}
}
