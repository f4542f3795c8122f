package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/domain/signals"
)

// PriorTradeDay resolves the trade date a morning run refreshes: the most
// recent weekday before now's calendar date. The post-close batch that
// produced the cohort ran the prior evening, so its rows are keyed there.
func PriorTradeDay(now time.Time) time.Time {
	day := domain.DateOf(now).AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// PreMarket runs the morning open-interest update for the previous trade
// day's cohort. Overnight settlement publishes fresh OI; the phase computes
// the day-over-day change near the money for the symbols the post-close
// batch scored, stores it, and rescores the cohort with the flow term now
// carrying real positioning data.
func (p *Pipeline) PreMarket(ctx context.Context, now time.Time) (*CycleReport, error) {
	return p.PreMarketFor(ctx, now, PriorTradeDay(now))
}

// PreMarketFor rescores the cohort keyed under tradeDate. The refreshed
// rows replace the post-close rows for that same date, so the day keeps one
// authoritative daily score per symbol.
func (p *Pipeline) PreMarketFor(ctx context.Context, now, tradeDate time.Time) (*CycleReport, error) {
	tradeDate = domain.DateOf(tradeDate)
	report := newReport(PhasePreMarket, tradeDate)
	logger := p.deps.Log.With().Str("phase", PhasePreMarket).Str("run_id", report.RunID.String()).Logger()

	prior, err := p.deps.DailyScores.ByDate(ctx, tradeDate)
	if err != nil {
		report.FinishedAt = time.Now()
		p.observe(PhasePreMarket, report, err)
		return report, fmt.Errorf("failed to load prior scores: %w", err)
	}
	if len(prior) == 0 {
		report.FinishedAt = time.Now()
		p.observe(PhasePreMarket, report, ErrEmptyUniverse)
		return report, ErrEmptyUniverse
	}
	logger.Info().Time("trade_date", tradeDate).Int("symbols", len(prior)).Msg("pre-market cycle started")

	works := make([]symbolWork, len(prior))
	for i, s := range prior {
		works[i] = symbolWork{
			event:       domain.EarningsEvent{Symbol: s.Symbol, At: s.AsOf},
			eventExpiry: s.EventExpiry,
		}
	}

	outcomes := p.runPool(ctx, works, func(ctx context.Context, w symbolWork) symbolOutcome {
		return p.fetchWithOIDelta(ctx, w, now, tradeDate)
	})

	if share := shareOfFailures(outcomes); share > p.cfg.FailureThreshold {
		report.Discarded = true
		p.scoreless(report, outcomes)
		report.FinishedAt = time.Now()
		p.observe(PhasePreMarket, report, ErrCohortInvalid)
		logger.Error().Float64("failure_share", share).Msg("cohort discarded")
		return report, ErrCohortInvalid
	}

	p.persistSnapshots(ctx, outcomes)

	entries := p.scoreOutcomes(report, outcomes, domain.DailySignals(), p.daily)
	if p.deps.Metrics != nil {
		p.deps.Metrics.CohortSize.WithLabelValues(PhasePreMarket).Set(float64(len(entries)))
	}

	for _, res := range report.Scored() {
		if err := p.deps.DailyScores.Upsert(ctx, res.Score); err != nil {
			report.FinishedAt = time.Now()
			p.observe(PhasePreMarket, report, err)
			return report, fmt.Errorf("failed to persist daily score for %s: %w", res.Symbol, err)
		}
	}

	report.FinishedAt = time.Now()
	p.observe(PhasePreMarket, report, nil)
	logger.Info().Int("scored", len(report.Scored())).Msg("pre-market cycle finished")
	return report, nil
}

// fetchWithOIDelta extends the shared fetch with the OI delta against the
// latest pre-cutoff observations, persisting the delta record as it goes.
// The vector and delta record are stamped with the cohort's trade date,
// not the morning run date.
func (p *Pipeline) fetchWithOIDelta(ctx context.Context, w symbolWork, now, tradeDate time.Time) symbolOutcome {
	o := p.fetchSymbol(ctx, w)
	if o.err != nil || o.skip != "" || o.vector == nil {
		return o
	}
	o.vector.TradeDate = tradeDate

	var optionSymbols []string
	for _, cs := range o.chains.Event {
		optionSymbols = append(optionSymbols, cs.Contract.OptionSymbol)
	}

	// Prior OI strictly before today: yesterday's settlement values.
	cutoff := domain.DateOf(now)
	priorOI, err := p.deps.Snapshots.LatestOIBySymbols(ctx, optionSymbols, cutoff)
	if err != nil {
		p.deps.Log.Warn().Str("symbol", w.event.Symbol).Err(err).Msg("prior OI unavailable, flow falls back to thrust")
		return o
	}

	spot := signals.Spot(o.chains.Event)
	if spot == nil {
		return o
	}
	dCalls, dPuts := signals.OIDelta(o.chains.Event, *spot, priorOI)
	if dCalls != nil {
		o.vector.OIDeltaCalls = domain.Float(float64(*dCalls))
	}
	if dPuts != nil {
		o.vector.OIDeltaPuts = domain.Float(float64(*dPuts))
	}
	if dCalls != nil && dPuts != nil {
		o.vector.OIDeltaNet = domain.Float(float64(*dCalls - *dPuts))
	}

	rec := domain.OIDeltaRecord{
		TradeDate:   tradeDate,
		Symbol:      w.event.Symbol,
		EventExpiry: o.window.Event,
		DeltaCalls:  dCalls,
		DeltaPuts:   dPuts,
	}
	if err := p.deps.OIDeltas.Upsert(ctx, rec); err != nil {
		p.deps.Log.Error().Str("symbol", w.event.Symbol).Err(err).Msg("failed to persist OI delta")
	}
	return o
}

func shareOfFailures(outcomes []symbolOutcome) float64 {
	attempted, failed := 0, 0
	for _, o := range outcomes {
		if o.skip != "" {
			continue
		}
		attempted++
		if o.err != nil {
			failed++
		}
	}
	if attempted == 0 {
		return 0
	}
	return float64(failed) / float64(attempted)
}
