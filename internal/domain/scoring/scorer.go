package scoring

import (
	"github.com/earnscope/earnscope/internal/domain"
)

// lowConfidenceMissing is the number of absent directional signals at which
// a score is flagged low-confidence. Missing signals contribute zero, which
// silently shrinks conviction; the flag makes that visible downstream.
const lowConfidenceMissing = 2

// neutralIVPct is the percentile assumed for structure selection when the
// IV bump could not be ranked.
const neutralIVPct = 0.5

// Scorer maps a normalized signal vector to a DirectionalScore under one
// weight profile.
type Scorer struct {
	profile Profile
}

// New creates a scorer for the given profile.
func New(profile Profile) *Scorer {
	return &Scorer{profile: profile}
}

// Profile returns the active profile.
func (s *Scorer) Profile() Profile { return s.profile }

// Score computes the weighted directional score and resolves decision,
// conviction, and structure. Null z-scores contribute zero and are counted;
// two or more missing directional signals mark the result low-confidence.
func (s *Scorer) Score(nv *domain.NormalizedSignalVector) *domain.DirectionalScore {
	w := s.profile.Weights

	var score float64
	missing := 0

	take := func(z *float64) float64 {
		if z == nil {
			missing++
			return 0
		}
		return *z
	}

	score += w.Skew * take(nv.Z(domain.SignalRR25D))
	score += w.Flow * s.flowComponent(nv, &missing)
	// Low PCR is bullish: the weight applies to the inverted z-score.
	score += w.PCR * -take(nv.Z(domain.SignalPCRVolume))
	score += w.Momentum * take(nv.Z(domain.SignalMomentum))
	if w.Consistency != 0 {
		score += w.Consistency * take(nv.Z(domain.SignalConsistency))
	}

	ivPct := nv.Pct(domain.SignalIVBump)
	if ivPct != nil {
		score += w.IVCost * *ivPct
	}
	if z := nv.Z(domain.SignalSpreadPct); z != nil {
		score += w.Spread * *z
	}

	result := &domain.DirectionalScore{
		Symbol:         nv.Symbol,
		AsOf:           nv.AsOf,
		Score:          score,
		SizeFactor:     1.0,
		MissingSignals: missing,
		LowConfidence:  missing >= lowConfidenceMissing,
	}
	if nv.Raw != nil {
		result.TradeDate = nv.Raw.TradeDate
		result.EventExpiry = nv.Raw.EventExpiry
	}

	s.resolve(result, ivPct)
	return result
}

// flowComponent builds the D2 net-flow term. When both ΔOI and volume
// thrust are present they blend 50/50; with one present it carries the
// component alone. Both absent counts as one missing directional signal.
func (s *Scorer) flowComponent(nv *domain.NormalizedSignalVector, missing *int) float64 {
	oi := nv.Z(domain.SignalOIDeltaNet)
	thrust := nv.Z(domain.SignalNetThrust)
	switch {
	case oi != nil && thrust != nil:
		return 0.5**oi + 0.5**thrust
	case oi != nil:
		return *oi
	case thrust != nil:
		return *thrust
	default:
		*missing++
		return 0
	}
}

// resolve maps the scalar score and IV-cost percentile to decision,
// conviction, and structure. The structure track is driven by the IV bump
// percentile independently of score strength, except that a weak
// directional never takes a naked position.
func (s *Scorer) resolve(r *domain.DirectionalScore, ivPct *float64) {
	th := s.profile.Thresholds

	if r.Score >= 0 {
		r.Direction = domain.DecisionCall
	} else {
		r.Direction = domain.DecisionPut
	}

	abs := r.Abs()
	if abs < th.Mid {
		r.Decision = domain.DecisionPass
		r.Structure = domain.StructureSkip
		r.Conviction = domain.ConvictionLow
		return
	}

	r.Decision = r.Direction
	if abs >= th.High {
		r.Conviction = domain.ConvictionHigh
	} else {
		r.Conviction = domain.ConvictionMedium
	}

	pct := neutralIVPct
	if ivPct != nil {
		pct = *ivPct
	}
	switch {
	case pct <= th.NakedPct:
		r.Structure = domain.StructureNaked
	case pct <= th.VerticalPct:
		r.Structure = domain.StructureVertical
	default:
		r.Structure = domain.StructureSkip
	}
	if r.Conviction == domain.ConvictionMedium && r.Structure == domain.StructureNaked {
		r.Structure = domain.StructureVertical
	}
}
