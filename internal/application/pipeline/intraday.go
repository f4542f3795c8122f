package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/domain/nowcast"
	"github.com/earnscope/earnscope/internal/domain/scoring"
)

// Intraday runs one nowcast cycle over today's universe: extract live
// vectors, score the cohort with the intraday profile, fold each raw score
// into the symbol's EWMA series, and apply the live-trading guards. The
// last cycle before the report is the authoritative one; every cycle is
// persisted so the day can be replayed.
func (p *Pipeline) Intraday(ctx context.Context, now time.Time) (*CycleReport, error) {
	report := newReport(PhaseIntraday, now)
	logger := p.deps.Log.With().Str("phase", PhaseIntraday).Str("run_id", report.RunID.String()).Logger()

	universe, err := p.universe(ctx, now)
	if err != nil {
		report.FinishedAt = time.Now()
		p.observe(PhaseIntraday, report, err)
		return report, fmt.Errorf("failed to resolve universe: %w", err)
	}
	if len(universe) == 0 {
		report.FinishedAt = time.Now()
		p.observe(PhaseIntraday, report, ErrEmptyUniverse)
		return report, ErrEmptyUniverse
	}
	logger.Info().Int("symbols", len(universe)).Msg("intraday cycle started")

	works := make([]symbolWork, len(universe))
	for i, e := range universe {
		works[i] = symbolWork{event: e}
	}
	outcomes := p.runPool(ctx, works, p.fetchSymbol)

	if share := shareOfFailures(outcomes); share > p.cfg.FailureThreshold {
		report.Discarded = true
		p.scoreless(report, outcomes)
		report.FinishedAt = time.Now()
		p.observe(PhaseIntraday, report, ErrCohortInvalid)
		logger.Error().Float64("failure_share", share).Msg("cohort discarded")
		return report, ErrCohortInvalid
	}

	p.persistSnapshots(ctx, outcomes)

	entries := p.scoreOutcomes(report, outcomes, domain.IntradaySignals(), p.intraday)
	if p.deps.Metrics != nil {
		p.deps.Metrics.CohortSize.WithLabelValues(PhaseIntraday).Set(float64(len(entries)))
	}

	// Smooth and guard per symbol. A stale update (clock skew between
	// cycles) drops that symbol's result but not the cycle.
	for i := range report.Results {
		res := &report.Results[i]
		if res.Status != StatusOK || res.Score == nil {
			continue
		}
		in := guardInputsFor(entries, res.Symbol)
		guardResults, err := p.deps.Nowcast.Update(ctx, res.Score, in)
		if err != nil {
			res.Status = StatusFailed
			res.Reason = err.Error()
			res.Score = nil
			continue
		}
		if p.deps.Metrics != nil {
			for _, g := range guardResults {
				if g.Fired {
					p.deps.Metrics.GuardFires.WithLabelValues(g.Name).Inc()
				}
			}
		}
		if err := p.deps.IntradayScores.Insert(ctx, res.Score); err != nil {
			report.FinishedAt = time.Now()
			p.observe(PhaseIntraday, report, err)
			return report, fmt.Errorf("failed to persist intraday score for %s: %w", res.Symbol, err)
		}
		if p.deps.Publisher != nil {
			p.deps.Publisher.Publish(*res.Score)
		}
	}

	report.FinishedAt = time.Now()
	p.observe(PhaseIntraday, report, nil)
	logger.Info().Int("scored", len(report.Scored())).Msg("intraday cycle finished")
	return report, nil
}

// guardInputsFor assembles the guard observables from a symbol's cohort
// entry.
func guardInputsFor(entries []scoring.CohortEntry, symbol string) nowcast.GuardInputs {
	for _, e := range entries {
		if e.Symbol != symbol {
			continue
		}
		in := nowcast.GuardInputs{
			SpreadPct: e.Raw.SpreadPctATM,
			IVBumpPct: e.Normalized.Pct(domain.SignalIVBump),
		}
		if e.Raw.TotalVolume != nil {
			in.ATMVolume = domain.Int64(int64(*e.Raw.TotalVolume))
		}
		return in
	}
	return nowcast.GuardInputs{}
}
