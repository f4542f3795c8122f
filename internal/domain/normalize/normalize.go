// Package normalize converts a cohort of raw signal vectors into
// cross-sectional z-scores and percentile ranks. Normalization is a
// synchronization barrier: it needs every symbol's raw vector before any
// symbol's output is defined.
package normalize

import (
	"math"
	"sort"

	"github.com/earnscope/earnscope/internal/domain"
)

// DefaultWinsorStd is the winsorization bound in standard deviations.
const DefaultWinsorStd = 2.0

// Config controls one normalization pass.
type Config struct {
	// WinsorStd clips each value to mean ± WinsorStd·std before scoring,
	// bounding outlier leverage. Zero or negative selects the default.
	WinsorStd float64 `yaml:"winsor_std"`
}

func (c Config) winsor() float64 {
	if c.WinsorStd > 0 {
		return c.WinsorStd
	}
	return DefaultWinsorStd
}

// Cohort normalizes every registered signal across the given vectors, which
// must share one asof/trade-date. Output order matches input order. Nil raw
// fields stay nil; they are excluded from the statistics, never imputed.
//
// Degenerate fields are not errors: fewer than two non-null values, or zero
// variance, define z = 0 for every present value.
func Cohort(vectors []*domain.RawSignalVector, reg *domain.Registry, cfg Config) []*domain.NormalizedSignalVector {
	out := make([]*domain.NormalizedSignalVector, len(vectors))
	for i, v := range vectors {
		out[i] = &domain.NormalizedSignalVector{
			Symbol: v.Symbol,
			AsOf:   v.AsOf,
			Raw:    v,
			Fields: make(map[string]domain.NormalizedSignal, len(reg.Defs())),
		}
	}

	for _, def := range reg.Defs() {
		normalizeField(vectors, out, def, cfg.winsor())
	}
	return out
}

func normalizeField(vectors []*domain.RawSignalVector, out []*domain.NormalizedSignalVector, def domain.SignalDef, winsor float64) {
	type obs struct {
		idx   int
		value float64
	}
	var present []obs
	for i, v := range vectors {
		if p := def.Get(v); p != nil && !math.IsNaN(*p) {
			present = append(present, obs{idx: i, value: *p})
		}
	}
	if len(present) == 0 {
		return
	}

	values := make([]float64, len(present))
	for i, o := range present {
		values[i] = o.value
	}
	mean, std := meanStd(values)
	pcts := percentileRanks(values)

	for i, o := range present {
		var z float64
		if len(present) >= 2 && std > 0 {
			z = (o.value - mean) / std
			if z > winsor {
				z = winsor
			} else if z < -winsor {
				z = -winsor
			}
		}
		out[o.idx].Fields[def.Name] = domain.NormalizedSignal{
			Z:   domain.Float(z),
			Pct: domain.Float(pcts[i]),
		}
	}
}

// meanStd returns the mean and sample standard deviation.
func meanStd(vs []float64) (mean, std float64) {
	n := float64(len(vs))
	for _, v := range vs {
		mean += v
	}
	mean /= n
	if len(vs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range vs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}

// percentileRanks maps each value to its average rank divided by n,
// yielding ranks in (0, 1]. Ties share the average of their rank positions.
func percentileRanks(vs []float64) []float64 {
	n := len(vs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return vs[order[a]] < vs[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && vs[order[j+1]] == vs[order[i]] {
			j++
		}
		// 1-based ranks i+1..j+1 share their average.
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg / float64(n)
		}
		i = j + 1
	}
	return ranks
}
