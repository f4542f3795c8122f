package nowcast

import (
	"fmt"
	"strings"

	"github.com/earnscope/earnscope/internal/domain"
)

// GuardConfig holds the live-trading guard thresholds.
type GuardConfig struct {
	// Whipsaw halves position size when the smoothed score moved more than
	// this between consecutive updates.
	WhipsawDelta float64 `yaml:"whipsaw_delta"`
	// Liquidity forces PASS below this ATM volume or above this spread.
	MinATMVolume int64   `yaml:"min_atm_volume"`
	MaxSpreadPct float64 `yaml:"max_spread_pct"`
	// Cost caps structure at VERTICAL from this IV bump percentile up.
	CostCapPct float64 `yaml:"cost_cap_pct"`
}

// DefaultGuardConfig returns the production guard thresholds.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		WhipsawDelta: 0.4,
		MinATMVolume: 10,
		MaxSpreadPct: 10.0,
		CostCapPct:   0.80,
	}
}

// GuardResult records one guard's verdict and the reason when it fired.
type GuardResult struct {
	Name   string
	Fired  bool
	Reason string
}

// GuardInputs carries the observable state the guards evaluate.
type GuardInputs struct {
	PrevSmoothed *float64 // smoothed score before this update, nil on day seed
	Smoothed     float64
	ATMVolume    *int64   // combined call+put volume near the money
	SpreadPct    *float64 // median ATM spread percent
	IVBumpPct    *float64 // cross-sectional IV bump percentile
}

// ApplyGuards mutates the score in place per the fired guards and returns
// the individual results for the audit trail. Order matters: liquidity can
// override the decision outright, whipsaw only scales size, cost only caps
// structure.
func ApplyGuards(score *domain.DirectionalScore, in GuardInputs, cfg GuardConfig) []GuardResult {
	results := []GuardResult{
		whipsawGuard(score, in, cfg),
		liquidityGuard(score, in, cfg),
		costGuard(score, in, cfg),
	}
	var notes []string
	if score.Notes != "" {
		notes = append(notes, score.Notes)
	}
	for _, r := range results {
		if r.Fired {
			notes = append(notes, r.Reason)
		}
	}
	score.Notes = strings.Join(notes, "; ")
	return results
}

// whipsawGuard halves size when the smoothed score swung hard since the
// previous update. A seeded day has no previous value and cannot whipsaw.
func whipsawGuard(score *domain.DirectionalScore, in GuardInputs, cfg GuardConfig) GuardResult {
	r := GuardResult{Name: "whipsaw"}
	if in.PrevSmoothed == nil {
		return r
	}
	delta := in.Smoothed - *in.PrevSmoothed
	if delta < 0 {
		delta = -delta
	}
	if delta > cfg.WhipsawDelta {
		r.Fired = true
		r.Reason = fmt.Sprintf("whipsaw: smoothed moved %.2f > %.2f, size halved", delta, cfg.WhipsawDelta)
		score.SizeFactor *= 0.5
	}
	return r
}

// liquidityGuard forces PASS when the event chain is too thin to trade.
// Missing volume or spread observations count as illiquid.
func liquidityGuard(score *domain.DirectionalScore, in GuardInputs, cfg GuardConfig) GuardResult {
	r := GuardResult{Name: "liquidity"}
	switch {
	case in.ATMVolume == nil:
		r.Fired = true
		r.Reason = "liquidity: ATM volume unavailable"
	case *in.ATMVolume < cfg.MinATMVolume:
		r.Fired = true
		r.Reason = fmt.Sprintf("liquidity: ATM volume %d < %d", *in.ATMVolume, cfg.MinATMVolume)
	case in.SpreadPct == nil:
		r.Fired = true
		r.Reason = "liquidity: ATM spread unavailable"
	case *in.SpreadPct > cfg.MaxSpreadPct:
		r.Fired = true
		r.Reason = fmt.Sprintf("liquidity: ATM spread %.1f%% > %.1f%%", *in.SpreadPct, cfg.MaxSpreadPct)
	}
	if r.Fired {
		score.Decision = domain.DecisionPass
		score.Structure = domain.StructureSkip
		score.Conviction = domain.ConvictionLow
		score.SizeFactor = 0
	}
	return r
}

// costGuard caps structure at VERTICAL when the event premium is rich.
func costGuard(score *domain.DirectionalScore, in GuardInputs, cfg GuardConfig) GuardResult {
	r := GuardResult{Name: "cost"}
	if in.IVBumpPct == nil || *in.IVBumpPct < cfg.CostCapPct {
		return r
	}
	if score.Structure == domain.StructureNaked {
		r.Fired = true
		r.Reason = fmt.Sprintf("cost: IV bump pct %.2f >= %.2f, structure capped at VERTICAL", *in.IVBumpPct, cfg.CostCapPct)
		score.Structure = domain.StructureVertical
	}
	return r
}
