package domain

import (
	"fmt"
	"time"
)

// OptionType identifies the contract side.
type OptionType string

const (
	Call OptionType = "C"
	Put  OptionType = "P"
)

// Decision is the directional recommendation for a symbol.
type Decision string

const (
	DecisionCall Decision = "CALL"
	DecisionPut  Decision = "PUT"
	DecisionPass Decision = "PASS"
)

// Structure is the recommended trade structure.
type Structure string

const (
	StructureNaked    Structure = "NAKED"
	StructureVertical Structure = "VERTICAL"
	StructureSkip     Structure = "SKIP"
)

// Conviction buckets the absolute score into coarse confidence bands.
type Conviction string

const (
	ConvictionHigh   Conviction = "HIGH"
	ConvictionMedium Conviction = "MEDIUM"
	ConvictionLow    Conviction = "LOW"
)

// OptionContract is the immutable identity of a listed option.
type OptionContract struct {
	OptionSymbol string     `json:"option_symbol" db:"option_symbol"`
	Symbol       string     `json:"symbol" db:"symbol"`
	Expiry       time.Time  `json:"expiry" db:"expiry"`
	Strike       float64    `json:"strike" db:"strike"`
	Type         OptionType `json:"option_type" db:"option_type"`
}

// MarketSnapshot is a point-in-time observation for one contract.
// Rows are append-only and never mutated after write.
type MarketSnapshot struct {
	AsOf         time.Time `json:"asof_ts" db:"asof_ts"`
	OptionSymbol string    `json:"option_symbol" db:"option_symbol"`
	UnderlyingPx *float64  `json:"underlying_px,omitempty" db:"underlying_px"`
	Bid          *float64  `json:"bid,omitempty" db:"bid"`
	Ask          *float64  `json:"ask,omitempty" db:"ask"`
	Last         *float64  `json:"last,omitempty" db:"last"`
	IV           *float64  `json:"iv,omitempty" db:"iv"`
	Delta        *float64  `json:"delta,omitempty" db:"delta"`
	Gamma        *float64  `json:"gamma,omitempty" db:"gamma"`
	Theta        *float64  `json:"theta,omitempty" db:"theta"`
	Vega         *float64  `json:"vega,omitempty" db:"vega"`
	Volume       *float64  `json:"volume,omitempty" db:"volume"`
	OpenInterest *int64    `json:"oi,omitempty" db:"oi"`
}

// ContractSnapshot couples a contract identity with its market observation.
// This is the unit the feature extractor consumes.
type ContractSnapshot struct {
	Contract OptionContract
	Market   MarketSnapshot
}

// EarningsEvent is one scheduled earnings report for a symbol.
type EarningsEvent struct {
	Symbol string    `json:"symbol" db:"symbol"`
	At     time.Time `json:"earnings_ts" db:"earnings_ts"`
}

// RawSignalVector holds the raw (pre-normalization) signals for one symbol
// at one observation time. Nil means the signal could not be computed this
// cycle; nils are never fabricated and never treated as zero before scoring.
type RawSignalVector struct {
	Symbol      string     `json:"symbol"`
	TradeDate   time.Time  `json:"trade_date"`
	AsOf        time.Time  `json:"asof_ts"`
	EventExpiry *time.Time `json:"event_expiry,omitempty"`

	RiskReversal25D *float64 `json:"rr_25d,omitempty"`
	PCRVolume       *float64 `json:"pcr_volume,omitempty"`
	PCRNotional     *float64 `json:"pcr_notional,omitempty"`
	ThrustCalls     *float64 `json:"vol_thrust_calls,omitempty"`
	ThrustPuts      *float64 `json:"vol_thrust_puts,omitempty"`
	NetThrust       *float64 `json:"net_thrust,omitempty"`
	ATMIVEvent      *float64 `json:"atm_iv_event,omitempty"`
	ATMIVPrev       *float64 `json:"atm_iv_prev,omitempty"`
	ATMIVNext       *float64 `json:"atm_iv_next,omitempty"`
	IVBump          *float64 `json:"iv_bump,omitempty"`
	SpreadPctATM    *float64 `json:"spread_pct_atm,omitempty"`
	BetaAdjMomentum *float64 `json:"beta_adj_return,omitempty"`
	Consistency     *float64 `json:"consistency,omitempty"`
	OIDeltaCalls    *float64 `json:"delta_oi_calls,omitempty"`
	OIDeltaPuts     *float64 `json:"delta_oi_puts,omitempty"`
	OIDeltaNet      *float64 `json:"delta_oi_net,omitempty"`

	// Liquidity context carried alongside the signals for guardrails.
	SpotPrice   *float64 `json:"spot_price,omitempty"`
	CallVolume  *float64 `json:"call_volume,omitempty"`
	PutVolume   *float64 `json:"put_volume,omitempty"`
	TotalVolume *float64 `json:"total_volume,omitempty"`
}

// NormalizedSignal is the cross-sectional z-score and percentile rank for
// one signal field. Nil values mirror a nil raw input.
type NormalizedSignal struct {
	Z   *float64 `json:"z,omitempty"`
	Pct *float64 `json:"pct,omitempty"`
}

// NormalizedSignalVector is a RawSignalVector normalized against its cohort.
type NormalizedSignalVector struct {
	Symbol string                      `json:"symbol"`
	AsOf   time.Time                   `json:"asof_ts"`
	Raw    *RawSignalVector            `json:"raw"`
	Fields map[string]NormalizedSignal `json:"fields"`
}

// Z returns the z-score for a named signal, or nil when the raw input was
// absent or the field was never normalized.
func (v *NormalizedSignalVector) Z(name string) *float64 {
	if v == nil || v.Fields == nil {
		return nil
	}
	return v.Fields[name].Z
}

// Pct returns the percentile rank for a named signal, or nil.
func (v *NormalizedSignalVector) Pct(name string) *float64 {
	if v == nil || v.Fields == nil {
		return nil
	}
	return v.Fields[name].Pct
}

// DirectionalScore is the scored decision for one symbol at one observation.
type DirectionalScore struct {
	Symbol      string     `json:"symbol"`
	TradeDate   time.Time  `json:"trade_date"`
	AsOf        time.Time  `json:"asof_ts"`
	EventExpiry *time.Time `json:"event_expiry,omitempty"`

	Score      float64    `json:"score"`
	Smoothed   *float64   `json:"score_ewma,omitempty"`
	Decision   Decision   `json:"decision"`
	Direction  Decision   `json:"direction"`
	Structure  Structure  `json:"structure"`
	Conviction Conviction `json:"conviction"`

	// SizeFactor is 1.0 normally, 0.5 when the whipsaw guard fired.
	SizeFactor float64 `json:"size_factor"`
	Notes      string  `json:"notes,omitempty"`

	// MissingSignals counts directional inputs that were absent and
	// contributed zero. Two or more flips LowConfidence.
	MissingSignals int  `json:"missing_signals"`
	LowConfidence  bool `json:"low_confidence"`
}

// Abs returns the conviction magnitude |score|.
func (s *DirectionalScore) Abs() float64 {
	if s.Score < 0 {
		return -s.Score
	}
	return s.Score
}

// EWMAState is the per-symbol smoothing state for the intraday nowcast.
// It exists only within one trading day and is the sole mutable entity
// shared across cycles.
type EWMAState struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Smoothed  float64   `json:"smoothed"`
	LastRaw   float64   `json:"last_raw"`
	Alpha     float64   `json:"alpha"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OIDeltaRecord is the per-(tradeDate,symbol) open-interest change computed
// from two snapshots roughly one trading day apart, restricted to ATM±2
// strikes.
type OIDeltaRecord struct {
	TradeDate   time.Time  `json:"trade_date" db:"trade_date"`
	Symbol      string     `json:"symbol" db:"symbol"`
	EventExpiry *time.Time `json:"event_expiry,omitempty" db:"event_expiry"`
	DeltaCalls  *int64     `json:"d_oi_calls,omitempty" db:"d_oi_calls"`
	DeltaPuts   *int64     `json:"d_oi_puts,omitempty" db:"d_oi_puts"`
	Detail      string     `json:"detail,omitempty" db:"detail"`
}

// DateOf truncates a timestamp to its calendar date in the timestamp's
// location. Trade dates and expiries are always stored this way.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two timestamps fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Float returns a pointer to v. Convenience for optional fields.
func Float(v float64) *float64 { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// Validate checks contract identity invariants before persistence.
func (c OptionContract) Validate() error {
	if c.OptionSymbol == "" || c.Symbol == "" {
		return fmt.Errorf("contract missing identity: %q/%q", c.OptionSymbol, c.Symbol)
	}
	if c.Type != Call && c.Type != Put {
		return fmt.Errorf("contract %s: invalid option type %q", c.OptionSymbol, c.Type)
	}
	if c.Strike <= 0 {
		return fmt.Errorf("contract %s: non-positive strike %f", c.OptionSymbol, c.Strike)
	}
	return nil
}
