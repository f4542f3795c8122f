package domain

// Canonical signal field names. The normalizer and scorer address signals
// by these names only; adding a signal means adding a registry entry, not
// reflecting over struct fields.
const (
	SignalRR25D       = "rr_25d"
	SignalPCRVolume   = "vol_pcr"
	SignalPCRNotional = "notional_pcr"
	SignalThrustCalls = "call_thrust"
	SignalThrustPuts  = "put_thrust"
	SignalNetThrust   = "net_thrust"
	SignalIVBump      = "iv_bump"
	SignalSpreadPct   = "spread_pct_atm"
	SignalMomentum    = "beta_adj_return"
	SignalConsistency = "consistency"
	SignalOIDeltaNet  = "delta_oi_net"
)

// SignalDef describes one registered signal: its name, what it measures,
// and how to read it off a raw vector.
type SignalDef struct {
	Name        string
	Description string
	Get         func(*RawSignalVector) *float64
}

// Registry is an ordered, explicit set of signal definitions shared by one
// cohort normalization pass.
type Registry struct {
	defs  []SignalDef
	index map[string]int
}

// NewRegistry builds a registry from the given definitions. Duplicate names
// overwrite earlier entries, preserving the original position.
func NewRegistry(defs ...SignalDef) *Registry {
	r := &Registry{index: make(map[string]int, len(defs))}
	for _, def := range defs {
		if i, ok := r.index[def.Name]; ok {
			r.defs[i] = def
			continue
		}
		r.index[def.Name] = len(r.defs)
		r.defs = append(r.defs, def)
	}
	return r
}

// Register appends (or replaces) a signal definition.
func (r *Registry) Register(def SignalDef) {
	if i, ok := r.index[def.Name]; ok {
		r.defs[i] = def
		return
	}
	r.index[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
}

// Defs returns the definitions in registration order.
func (r *Registry) Defs() []SignalDef {
	out := make([]SignalDef, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (SignalDef, bool) {
	i, ok := r.index[name]
	if !ok {
		return SignalDef{}, false
	}
	return r.defs[i], true
}

// DailySignals is the registry used by the post-close and pre-market phases.
func DailySignals() *Registry {
	return NewRegistry(
		SignalDef{Name: SignalRR25D, Description: "25-delta risk reversal on the event expiry", Get: func(v *RawSignalVector) *float64 { return v.RiskReversal25D }},
		SignalDef{Name: SignalPCRVolume, Description: "put/call ratio by volume", Get: func(v *RawSignalVector) *float64 { return v.PCRVolume }},
		SignalDef{Name: SignalPCRNotional, Description: "put/call ratio by notional", Get: func(v *RawSignalVector) *float64 { return v.PCRNotional }},
		SignalDef{Name: SignalThrustCalls, Description: "call volume vs 20d median", Get: func(v *RawSignalVector) *float64 { return v.ThrustCalls }},
		SignalDef{Name: SignalThrustPuts, Description: "put volume vs 20d median", Get: func(v *RawSignalVector) *float64 { return v.ThrustPuts }},
		SignalDef{Name: SignalNetThrust, Description: "call thrust minus put thrust", Get: func(v *RawSignalVector) *float64 { return v.NetThrust }},
		SignalDef{Name: SignalIVBump, Description: "event ATM IV minus neighbor average", Get: func(v *RawSignalVector) *float64 { return v.IVBump }},
		SignalDef{Name: SignalSpreadPct, Description: "median bid/ask spread percent near ATM", Get: func(v *RawSignalVector) *float64 { return v.SpreadPctATM }},
		SignalDef{Name: SignalMomentum, Description: "beta-adjusted short-term return", Get: func(v *RawSignalVector) *float64 { return v.BetaAdjMomentum }},
		SignalDef{Name: SignalConsistency, Description: "historical skew/return consistency", Get: func(v *RawSignalVector) *float64 { return v.Consistency }},
		SignalDef{Name: SignalOIDeltaNet, Description: "net open-interest change in the ATM window", Get: func(v *RawSignalVector) *float64 { return v.OIDeltaNet }},
	)
}

// IntradaySignals is the registry used by the nowcast phase: no OI-derived
// and no historical-consistency fields, which are unavailable intraday.
func IntradaySignals() *Registry {
	return NewRegistry(
		SignalDef{Name: SignalRR25D, Description: "25-delta risk reversal on the event expiry", Get: func(v *RawSignalVector) *float64 { return v.RiskReversal25D }},
		SignalDef{Name: SignalNetThrust, Description: "call thrust minus put thrust", Get: func(v *RawSignalVector) *float64 { return v.NetThrust }},
		SignalDef{Name: SignalPCRVolume, Description: "put/call ratio by volume", Get: func(v *RawSignalVector) *float64 { return v.PCRVolume }},
		SignalDef{Name: SignalMomentum, Description: "beta-adjusted short-term return", Get: func(v *RawSignalVector) *float64 { return v.BetaAdjMomentum }},
		SignalDef{Name: SignalIVBump, Description: "event ATM IV minus neighbor average", Get: func(v *RawSignalVector) *float64 { return v.IVBump }},
		SignalDef{Name: SignalSpreadPct, Description: "median bid/ask spread percent near ATM", Get: func(v *RawSignalVector) *float64 { return v.SpreadPctATM }},
	)
}
