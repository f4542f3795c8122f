package signals

import (
	"github.com/earnscope/earnscope/internal/domain"
)

// contractMultiplier is the standard equity option contract size.
const contractMultiplier = 100

// PCRResult carries the put/call ratio by volume and by notional. Either
// field may be nil when the call-side aggregate is zero.
type PCRResult struct {
	Volume   *float64
	Notional *float64
}

// PCR computes the put/call ratio on the event expiry. The notional variant
// weights each contract's volume by price and contract size; contracts with
// no positive price are excluded from the notional aggregate only.
func PCR(eventContracts []domain.ContractSnapshot) PCRResult {
	var callVol, putVol float64
	var callNotional, putNotional float64

	for _, c := range eventContracts {
		m := c.Market
		vol := 0.0
		if m.Volume != nil {
			vol = *m.Volume
		}

		switch c.Contract.Type {
		case domain.Call:
			callVol += vol
		case domain.Put:
			putVol += vol
		default:
			continue
		}

		price := contractPrice(m)
		if price == nil || *price <= 0 {
			continue
		}
		notional := vol * *price * contractMultiplier
		if c.Contract.Type == domain.Call {
			callNotional += notional
		} else {
			putNotional += notional
		}
	}

	var out PCRResult
	if callVol > 0 {
		out.Volume = domain.Float(putVol / callVol)
	}
	if callNotional > 0 {
		out.Notional = domain.Float(putNotional / callNotional)
	}
	return out
}

// contractPrice prefers the last trade, falling back to the quote mid.
func contractPrice(m domain.MarketSnapshot) *float64 {
	if m.Last != nil && *m.Last > 0 {
		return m.Last
	}
	if m.Bid != nil && m.Ask != nil && *m.Bid > 0 && *m.Ask > 0 {
		return domain.Float((*m.Bid + *m.Ask) / 2)
	}
	return nil
}

// VolumeBaseline is the 20-trading-day median option volume per side.
type VolumeBaseline struct {
	CallMed20 float64
	PutMed20  float64
}

// ThrustResult holds the per-side and net volume thrust.
type ThrustResult struct {
	Calls *float64
	Puts  *float64
	Net   *float64
}

// VolumeThrust compares today's per-side volume against the 20-day median:
// volume/median - 1. The net signal is call thrust minus put thrust and is
// nil unless both sides computed.
func VolumeThrust(eventContracts []domain.ContractSnapshot, baseline VolumeBaseline) ThrustResult {
	callVol := SideVolume(eventContracts, domain.Call)
	putVol := SideVolume(eventContracts, domain.Put)

	var out ThrustResult
	if baseline.CallMed20 > 0 {
		out.Calls = domain.Float(callVol/baseline.CallMed20 - 1)
	}
	if baseline.PutMed20 > 0 {
		out.Puts = domain.Float(putVol/baseline.PutMed20 - 1)
	}
	if out.Calls != nil && out.Puts != nil {
		out.Net = domain.Float(*out.Calls - *out.Puts)
	}
	return out
}

// SideVolume sums reported contract volume for one side of the chain.
func SideVolume(contracts []domain.ContractSnapshot, side domain.OptionType) float64 {
	var total float64
	for _, c := range contracts {
		if c.Contract.Type != side || c.Market.Volume == nil {
			continue
		}
		total += *c.Market.Volume
	}
	return total
}

// Spot returns the first underlying price observed in the snapshot set.
func Spot(contracts []domain.ContractSnapshot) *float64 {
	for _, c := range contracts {
		if c.Market.UnderlyingPx != nil && *c.Market.UnderlyingPx > 0 {
			return c.Market.UnderlyingPx
		}
	}
	return nil
}
