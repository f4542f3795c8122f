package signals

import (
	"math"
	"sort"

	"github.com/earnscope/earnscope/internal/domain"
)

// spreadStrikeWindow bounds the strikes considered for the ATM spread
// measure, as a fraction of spot.
const spreadStrikeWindow = 0.05

// SpreadPctATM is the median relative bid/ask spread, in percent, across
// contracts within 5% of spot: (ask-bid)/mid * 100. Quotes without a
// positive bid, ask, and mid are excluded. Nil when spot is unknown or no
// usable quotes remain.
func SpreadPctATM(eventContracts []domain.ContractSnapshot, spot *float64) *float64 {
	if spot == nil || *spot <= 0 {
		return nil
	}
	var spreads []float64
	for _, c := range eventContracts {
		strike := c.Contract.Strike
		if strike <= 0 || math.Abs(strike-*spot)/(*spot) > spreadStrikeWindow {
			continue
		}
		m := c.Market
		if m.Bid == nil || m.Ask == nil || *m.Bid <= 0 || *m.Ask <= 0 {
			continue
		}
		mid := (*m.Bid + *m.Ask) / 2
		if mid <= 0 {
			continue
		}
		spreads = append(spreads, (*m.Ask-*m.Bid)/mid*100)
	}
	if len(spreads) == 0 {
		return nil
	}
	return domain.Float(median(spreads))
}

// median returns the middle value of vs, averaging the two central values
// for even lengths. vs is reordered in place.
func median(vs []float64) float64 {
	sort.Float64s(vs)
	n := len(vs)
	if n%2 == 1 {
		return vs[n/2]
	}
	return (vs[n/2-1] + vs[n/2]) / 2
}
