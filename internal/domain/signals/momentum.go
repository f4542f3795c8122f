package signals

import (
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

const (
	// betaWindow is the maximum number of matched daily returns used for
	// the beta estimate; betaMinObs is the floor below which no estimate
	// is made.
	betaWindow = 60
	betaMinObs = 20
)

// MomentumResult carries the components of the beta-adjusted momentum
// signal for audit.
type MomentumResult struct {
	StockReturn  float64
	SectorReturn float64
	Beta         float64
	BetaAdjusted float64
}

// BetaAdjMomentum computes the N-day underlying return minus beta times the
// sector-proxy return over the same window. Beta is estimated from up to 60
// matched daily returns (minimum 20); returns over the lookback are summed.
// Nil when the series are too short or cannot be aligned.
func BetaAdjMomentum(stock, sector []domain.Bar, lookbackDays int) *MomentumResult {
	if lookbackDays <= 0 {
		return nil
	}
	stockRet := dailyReturns(stock)
	sectorRet := dailyReturns(sector)
	merged := alignReturns(stockRet, sectorRet)
	if len(merged) < lookbackDays+betaMinObs {
		return nil
	}

	betaSlice := merged
	if len(betaSlice) > betaWindow {
		betaSlice = betaSlice[len(betaSlice)-betaWindow:]
	}
	beta, ok := estimateBeta(betaSlice)
	if !ok {
		return nil
	}

	recent := merged[len(merged)-lookbackDays:]
	var stockSum, sectorSum float64
	for _, r := range recent {
		stockSum += r.stock
		sectorSum += r.sector
	}

	return &MomentumResult{
		StockReturn:  stockSum,
		SectorReturn: sectorSum,
		Beta:         beta,
		BetaAdjusted: stockSum - beta*sectorSum,
	}
}

type dayReturn struct {
	date   time.Time
	value  float64
	stock  float64
	sector float64
}

// dailyReturns converts a bar series to close-over-close returns keyed by
// date. Bars with non-positive closes break the chain and are skipped.
func dailyReturns(bars []domain.Bar) []dayReturn {
	var out []dayReturn
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1], bars[i]
		if prev.Close <= 0 || cur.Close <= 0 {
			continue
		}
		out = append(out, dayReturn{
			date:  domain.DateOf(cur.Date),
			value: (cur.Close - prev.Close) / prev.Close,
		})
	}
	return out
}

// alignReturns inner-joins the two return series on date, preserving order.
func alignReturns(stock, sector []dayReturn) []dayReturn {
	byDate := make(map[time.Time]float64, len(sector))
	for _, r := range sector {
		byDate[r.date] = r.value
	}
	var out []dayReturn
	for _, r := range stock {
		sv, ok := byDate[r.date]
		if !ok {
			continue
		}
		out = append(out, dayReturn{date: r.date, stock: r.value, sector: sv})
	}
	return out
}

// minSectorVariance is the degenerate-variance floor for the beta
// estimate. A near-constant sector series still carries float rounding
// noise in its demeaned squares; dividing by it would turn that noise
// into the beta.
const minSectorVariance = 1e-12

// estimateBeta computes cov(stock, sector)/var(sector) over the matched
// returns. A degenerate sector variance yields beta 1 (no adjustment
// basis).
func estimateBeta(rs []dayReturn) (float64, bool) {
	n := float64(len(rs))
	if n < betaMinObs {
		return 0, false
	}
	var meanS, meanX float64
	for _, r := range rs {
		meanS += r.stock
		meanX += r.sector
	}
	meanS /= n
	meanX /= n

	var cov, varX float64
	for _, r := range rs {
		cov += (r.stock - meanS) * (r.sector - meanX)
		varX += (r.sector - meanX) * (r.sector - meanX)
	}
	if varX < minSectorVariance {
		return 1.0, true
	}
	return cov / varX, true
}
