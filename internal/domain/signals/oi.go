package signals

import (
	"math"
	"sort"

	"github.com/earnscope/earnscope/internal/domain"
)

// oiStrikeSpan is the number of strikes kept on each side of the ATM strike
// for the ΔOI window (ATM±2, five strikes total).
const oiStrikeSpan = 2

// ATMWindowStrikes returns the five strikes centered on the strike closest
// to spot. Fewer are returned near the edges of the listed ladder.
func ATMWindowStrikes(contracts []domain.ContractSnapshot, spot float64) []float64 {
	seen := make(map[float64]struct{})
	var strikes []float64
	for _, c := range contracts {
		s := c.Contract.Strike
		if s <= 0 {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		strikes = append(strikes, s)
	}
	if len(strikes) == 0 {
		return nil
	}
	sort.Float64s(strikes)

	closest := 0
	for i, s := range strikes {
		if math.Abs(s-spot) < math.Abs(strikes[closest]-spot) {
			closest = i
		}
	}
	lo := closest - oiStrikeSpan
	if lo < 0 {
		lo = 0
	}
	hi := closest + oiStrikeSpan
	if hi > len(strikes)-1 {
		hi = len(strikes) - 1
	}
	return strikes[lo : hi+1]
}

// OIDelta computes the per-side open-interest change between the current
// snapshot and priorOI (latest stored OI keyed by option symbol), restricted
// to the ATM±2 strike window. Contracts absent from priorOI count as prior
// zero. Nil sides mean no contracts fell inside the window.
func OIDelta(contracts []domain.ContractSnapshot, spot float64, priorOI map[string]int64) (deltaCalls, deltaPuts *int64) {
	window := ATMWindowStrikes(contracts, spot)
	if len(window) == 0 {
		return nil, nil
	}
	inWindow := make(map[float64]struct{}, len(window))
	for _, s := range window {
		inWindow[s] = struct{}{}
	}

	var curCalls, curPuts, prevCalls, prevPuts int64
	var sawCalls, sawPuts bool
	for _, c := range contracts {
		if _, ok := inWindow[c.Contract.Strike]; !ok {
			continue
		}
		var oi int64
		if c.Market.OpenInterest != nil {
			oi = *c.Market.OpenInterest
		}
		prev := priorOI[c.Contract.OptionSymbol]
		switch c.Contract.Type {
		case domain.Call:
			sawCalls = true
			curCalls += oi
			prevCalls += prev
		case domain.Put:
			sawPuts = true
			curPuts += oi
			prevPuts += prev
		}
	}

	if sawCalls {
		deltaCalls = domain.Int64(curCalls - prevCalls)
	}
	if sawPuts {
		deltaPuts = domain.Int64(curPuts - prevPuts)
	}
	return deltaCalls, deltaPuts
}
