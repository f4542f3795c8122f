package signals

import (
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

// Default parameters mirroring the production configuration.
const (
	DefaultLookbackDays = 3

	// Heuristic baseline when no option volume history exists: option
	// volume runs near 5% of underlying volume, split 60/40 calls/puts.
	baselineOptionShare = 0.05
	baselineCallShare   = 0.60
	baselinePutShare    = 0.40

	fallbackCallMed20 = 10000
	fallbackPutMed20  = 8000
)

// ChainSet groups the chain snapshots for the event expiry and its
// neighbors. Prev and Next may be empty.
type ChainSet struct {
	Event []domain.ContractSnapshot
	Prev  []domain.ContractSnapshot
	Next  []domain.ContractSnapshot
}

// Inputs is everything Extract needs for one symbol.
type Inputs struct {
	Symbol      string
	TradeDate   time.Time
	AsOf        time.Time
	EventExpiry *time.Time

	Chains   ChainSet
	Baseline *VolumeBaseline

	// Daily bars for the underlying and the sector proxy, oldest first.
	StockBars    []domain.Bar
	SectorBars   []domain.Bar
	LookbackDays int
}

// Extract derives the full raw signal vector for one symbol. Individual
// signals that cannot be computed stay nil; Extract itself never fails.
func Extract(in Inputs) *domain.RawSignalVector {
	lookback := in.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}

	v := &domain.RawSignalVector{
		Symbol:      in.Symbol,
		TradeDate:   domain.DateOf(in.TradeDate),
		AsOf:        in.AsOf,
		EventExpiry: in.EventExpiry,
	}

	event := in.Chains.Event
	spot := Spot(event)
	v.SpotPrice = spot

	v.RiskReversal25D = RiskReversal25D(event)

	pcr := PCR(event)
	v.PCRVolume = pcr.Volume
	v.PCRNotional = pcr.Notional

	if in.Baseline != nil {
		thrust := VolumeThrust(event, *in.Baseline)
		v.ThrustCalls = thrust.Calls
		v.ThrustPuts = thrust.Puts
		v.NetThrust = thrust.Net
	}

	v.ATMIVEvent = ATMIV(event, spot)
	if len(in.Chains.Prev) > 0 {
		v.ATMIVPrev = ATMIV(in.Chains.Prev, spot)
	}
	if len(in.Chains.Next) > 0 {
		v.ATMIVNext = ATMIV(in.Chains.Next, spot)
	}
	v.IVBump = IVBump(v.ATMIVEvent, v.ATMIVPrev, v.ATMIVNext)

	v.SpreadPctATM = SpreadPctATM(event, spot)

	if mom := BetaAdjMomentum(in.StockBars, in.SectorBars, lookback); mom != nil {
		v.BetaAdjMomentum = domain.Float(mom.BetaAdjusted)
	}

	callVol := SideVolume(event, domain.Call)
	putVol := SideVolume(event, domain.Put)
	if callVol > 0 {
		v.CallVolume = domain.Float(callVol)
	}
	if putVol > 0 {
		v.PutVolume = domain.Float(putVol)
	}
	if callVol+putVol > 0 {
		v.TotalVolume = domain.Float(callVol + putVol)
	}

	return v
}

// EstimateBaseline approximates the 20-day per-side option volume baseline
// from underlying daily bars when no option volume history is stored. Falls
// back to fixed defaults on empty input.
func EstimateBaseline(bars []domain.Bar) VolumeBaseline {
	var volumes []float64
	for _, b := range bars {
		if b.Volume > 0 {
			volumes = append(volumes, b.Volume)
		}
	}
	if len(volumes) == 0 {
		return VolumeBaseline{CallMed20: fallbackCallMed20, PutMed20: fallbackPutMed20}
	}
	med := median(volumes)
	return VolumeBaseline{
		CallMed20: med * baselineOptionShare * baselineCallShare,
		PutMed20:  med * baselineOptionShare * baselinePutShare,
	}
}
