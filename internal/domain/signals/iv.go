// Package signals derives the raw signal vector for one symbol from options
// chain snapshots and an underlying price series. Every function returns nil
// on insufficient or missing inputs; nil means "unavailable this cycle" and
// is never collapsed to zero here.
package signals

import (
	"math"
	"sort"

	"github.com/earnscope/earnscope/internal/domain"
)

// atmStrikeWindow bounds the strikes considered "near the money" for ATM IV
// interpolation, as a fraction of spot.
const atmStrikeWindow = 0.20

type point struct {
	x, y float64
}

// InterpIVAtDelta linearly interpolates implied volatility at a target
// absolute delta for one side of the chain. It requires two contracts whose
// deltas straddle the target; a target outside the observed delta range
// yields nil.
func InterpIVAtDelta(contracts []domain.ContractSnapshot, targetDelta float64, side domain.OptionType) *float64 {
	var pts []point
	for _, c := range contracts {
		if c.Contract.Type != side {
			continue
		}
		m := c.Market
		if m.Delta == nil || m.IV == nil || *m.IV <= 0 {
			continue
		}
		pts = append(pts, point{x: math.Abs(*m.Delta), y: *m.IV})
	}
	if len(pts) < 2 {
		return nil
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	if targetDelta < pts[0].x || targetDelta > pts[len(pts)-1].x {
		return nil
	}
	return domain.Float(interpAt(pts, targetDelta))
}

// interpAt evaluates the piecewise-linear curve through pts (sorted by x)
// at x. Callers guarantee x is within [pts[0].x, pts[n-1].x].
func interpAt(pts []point, x float64) float64 {
	for i := 1; i < len(pts); i++ {
		if x > pts[i].x {
			continue
		}
		lo, hi := pts[i-1], pts[i]
		if hi.x == lo.x {
			return (lo.y + hi.y) / 2
		}
		frac := (x - lo.x) / (hi.x - lo.x)
		return lo.y + frac*(hi.y-lo.y)
	}
	return pts[len(pts)-1].y
}

// ATMIV interpolates at-the-money implied volatility at the spot price,
// averaging the call-side and put-side curves. Strikes further than 20% from
// spot are ignored. When a side has fewer than two usable quotes the
// nearest-strike IV across both sides is used as a fallback. Nil when spot
// is unknown or no usable quotes exist.
func ATMIV(contracts []domain.ContractSnapshot, spot *float64) *float64 {
	if spot == nil || *spot <= 0 {
		return nil
	}
	var calls, puts []point
	for _, c := range contracts {
		m := c.Market
		strike := c.Contract.Strike
		if m.IV == nil || *m.IV <= 0 || strike <= 0 {
			continue
		}
		if math.Abs(strike-*spot)/(*spot) > atmStrikeWindow {
			continue
		}
		p := point{x: strike, y: *m.IV}
		switch c.Contract.Type {
		case domain.Call:
			calls = append(calls, p)
		case domain.Put:
			puts = append(puts, p)
		}
	}

	if len(calls) < 2 || len(puts) < 2 {
		all := append(append([]point{}, calls...), puts...)
		if len(all) == 0 {
			return nil
		}
		nearest := all[0]
		for _, p := range all[1:] {
			if math.Abs(p.x-*spot) < math.Abs(nearest.x-*spot) {
				nearest = p
			}
		}
		return domain.Float(nearest.y)
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].x < calls[j].x })
	sort.Slice(puts, func(i, j int) bool { return puts[i].x < puts[j].x })

	callIV := interpClamped(calls, *spot)
	putIV := interpClamped(puts, *spot)
	return domain.Float((callIV + putIV) / 2)
}

// interpClamped is interpAt with the query clamped to the curve's domain,
// so a spot outside the strike range takes the endpoint IV.
func interpClamped(pts []point, x float64) float64 {
	if x <= pts[0].x {
		return pts[0].y
	}
	if x >= pts[len(pts)-1].x {
		return pts[len(pts)-1].y
	}
	return interpAt(pts, x)
}

// RiskReversal25D is the 25-delta risk reversal on the event expiry:
// IV(25d call) - IV(25d put). Positive values mark bullish skew.
func RiskReversal25D(eventContracts []domain.ContractSnapshot) *float64 {
	call := InterpIVAtDelta(eventContracts, 0.25, domain.Call)
	put := InterpIVAtDelta(eventContracts, 0.25, domain.Put)
	if call == nil || put == nil {
		return nil
	}
	return domain.Float(*call - *put)
}

// IVBump measures how rich the event node is priced relative to its
// neighbor expiries: ATM(event) - mean(ATM(prev), ATM(next)), with one or
// two neighbors. Nil when the event ATM or every neighbor is missing.
func IVBump(atmEvent, atmPrev, atmNext *float64) *float64 {
	if atmEvent == nil {
		return nil
	}
	var sum float64
	var n int
	if atmPrev != nil {
		sum += *atmPrev
		n++
	}
	if atmNext != nil {
		sum += *atmNext
		n++
	}
	if n == 0 {
		return nil
	}
	return domain.Float(*atmEvent - sum/float64(n))
}
