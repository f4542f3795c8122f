// Package scoring combines normalized signals into a directional score and
// maps it to a decision, conviction band, and trade structure.
package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile names.
const (
	ProfileDaily    = "daily"
	ProfileIntraday = "intraday"
)

// Weights is the signed weight table for one profile. The PCR weight is
// applied to the inverted z-score (low put/call ratio is bullish). Penalty
// weights are negative: they subtract from conviction.
type Weights struct {
	Skew        float64 `yaml:"skew"`        // D1: 25-delta risk reversal
	Flow        float64 `yaml:"flow"`        // D2: net flow (ΔOI and/or volume thrust)
	PCR         float64 `yaml:"pcr"`         // D3: put/call ratio, inverted
	Momentum    float64 `yaml:"momentum"`    // D4: beta-adjusted momentum
	Consistency float64 `yaml:"consistency"` // D5: historical skew consistency
	IVCost      float64 `yaml:"iv_cost"`     // P1: IV bump percentile
	Spread      float64 `yaml:"spread"`      // P2: ATM spread z-score
}

// Thresholds maps the scalar score and the IV-cost percentile to decision
// and structure.
type Thresholds struct {
	High        float64 `yaml:"high"`         // |score| >= High: strong directional
	Mid         float64 `yaml:"mid"`          // |score| < Mid: PASS
	NakedPct    float64 `yaml:"naked_pct"`    // iv bump pct <= NakedPct: NAKED ok
	VerticalPct float64 `yaml:"vertical_pct"` // <= VerticalPct: VERTICAL; above: SKIP
}

// Profile is one named scoring configuration.
type Profile struct {
	Name       string     `yaml:"name"`
	Weights    Weights    `yaml:"weights"`
	Thresholds Thresholds `yaml:"thresholds"`
}

// DefaultThresholds returns the production decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.7, Mid: 0.4, NakedPct: 0.60, VerticalPct: 0.85}
}

// DailyProfile is the post-close/pre-market weight table: five directional
// signals plus two penalties.
func DailyProfile() Profile {
	return Profile{
		Name: ProfileDaily,
		Weights: Weights{
			Skew:        0.32,
			Flow:        0.28,
			PCR:         0.18,
			Momentum:    0.12,
			Consistency: 0.10,
			IVCost:      -0.10,
			Spread:      -0.05,
		},
		Thresholds: DefaultThresholds(),
	}
}

// IntradayProfile is the nowcast weight table: no OI-derived flow and no
// historical-consistency term, with flow carried entirely by volume thrust.
func IntradayProfile() Profile {
	return Profile{
		Name: ProfileIntraday,
		Weights: Weights{
			Skew:     0.38,
			Flow:     0.28,
			PCR:      0.18,
			Momentum: 0.10,
			IVCost:   -0.10,
			Spread:   -0.05,
		},
		Thresholds: DefaultThresholds(),
	}
}

// ProfilesFile is the on-disk layout of config/weights.yaml.
type ProfilesFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// LoadProfiles reads named weight profiles from a yaml file, filling
// missing thresholds with defaults.
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read weights config: %w", err)
	}
	var file ProfilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse weights YAML: %w", err)
	}
	for name, p := range file.Profiles {
		if p.Name == "" {
			p.Name = name
		}
		if p.Thresholds == (Thresholds{}) {
			p.Thresholds = DefaultThresholds()
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		file.Profiles[name] = p
	}
	return file.Profiles, nil
}

// Validate rejects weight tables that cannot produce sane decisions.
func (p Profile) Validate() error {
	if p.Thresholds.Mid <= 0 || p.Thresholds.High <= p.Thresholds.Mid {
		return fmt.Errorf("profile %s: thresholds must satisfy 0 < mid < high", p.Name)
	}
	if p.Thresholds.NakedPct <= 0 || p.Thresholds.VerticalPct <= p.Thresholds.NakedPct || p.Thresholds.VerticalPct > 1 {
		return fmt.Errorf("profile %s: structure percentiles must satisfy 0 < naked < vertical <= 1", p.Name)
	}
	if p.Weights.IVCost > 0 || p.Weights.Spread > 0 {
		return fmt.Errorf("profile %s: penalty weights must be non-positive", p.Name)
	}
	return nil
}
