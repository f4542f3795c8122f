package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/domain/events"
	"github.com/earnscope/earnscope/internal/domain/normalize"
	"github.com/earnscope/earnscope/internal/domain/nowcast"
	"github.com/earnscope/earnscope/internal/domain/scoring"
	"github.com/earnscope/earnscope/internal/domain/signals"
	"github.com/earnscope/earnscope/internal/metrics"
	"github.com/earnscope/earnscope/internal/persistence"
	"github.com/earnscope/earnscope/internal/provider"
)

// Config tunes a pipeline run.
type Config struct {
	Workers          int                `yaml:"workers"`
	SymbolTimeout    time.Duration      `yaml:"symbol_timeout"`
	LookbackDays     int                `yaml:"lookback_days"`
	SectorProxy      string             `yaml:"sector_proxy"`
	FailureThreshold float64            `yaml:"failure_threshold"`
	OutputDir        string             `yaml:"output_dir"`
	Winsor           float64            `yaml:"winsor_std"`
	Expiry           events.Constraints `yaml:"expiry"`

	// Universe restricts scoring to these symbols when non-empty.
	Universe []string `yaml:"universe"`
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		Workers:          8,
		SymbolTimeout:    30 * time.Second,
		LookbackDays:     signals.DefaultLookbackDays,
		SectorProxy:      "SPY",
		FailureThreshold: 0.5,
		OutputDir:        "out",
		Expiry:           events.DefaultConstraints(),
	}
}

// Deps bundles everything the phases need. Interfaces keep the pipelines
// testable with fakes.
type Deps struct {
	Chains   provider.ChainProvider
	Prices   provider.PriceProvider
	Earnings provider.EarningsProvider

	Contracts      persistence.ContractsRepo
	Snapshots      persistence.SnapshotsRepo
	EarningsRepo   persistence.EarningsRepo
	DailyScores    persistence.DailyScoresRepo
	IntradayScores persistence.IntradayScoresRepo
	OIDeltas       persistence.OIDeltaRepo

	Nowcast *nowcast.Manager
	Metrics *metrics.Registry
	Log     zerolog.Logger

	// Publisher receives each persisted intraday score; nil disables
	// streaming.
	Publisher ScorePublisher
}

// ScorePublisher pushes live score updates to subscribers.
type ScorePublisher interface {
	Publish(score domain.DirectionalScore)
}

// Pipeline runs the three scoring phases over one shared dependency set.
type Pipeline struct {
	cfg      Config
	deps     Deps
	daily    *scoring.Scorer
	intraday *scoring.Scorer
}

// New builds a pipeline. Zero-value config fields fall back to defaults.
func New(cfg Config, deps Deps, daily, intraday scoring.Profile) *Pipeline {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.SymbolTimeout <= 0 {
		cfg.SymbolTimeout = def.SymbolTimeout
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = def.LookbackDays
	}
	if cfg.SectorProxy == "" {
		cfg.SectorProxy = def.SectorProxy
	}
	if cfg.FailureThreshold <= 0 || cfg.FailureThreshold > 1 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.Expiry.MaxEventDTE <= 0 {
		cfg.Expiry = def.Expiry
	}
	return &Pipeline{
		cfg:      cfg,
		deps:     deps,
		daily:    scoring.New(daily),
		intraday: scoring.New(intraday),
	}
}

// symbolWork is one symbol's fetch-and-extract job. eventExpiry carries a
// previously persisted event expiry for rescoring phases; nil means the
// window is resolved fresh from the earnings timestamp.
type symbolWork struct {
	event       domain.EarningsEvent
	eventExpiry *time.Time
}

// symbolOutcome is the join-side result of one job.
type symbolOutcome struct {
	symbol string
	vector *domain.RawSignalVector
	chains signals.ChainSet
	window events.Window
	err    error
	skip   string
}

// runPool fans jobs out to the bounded worker pool and joins the outcomes
// in symbol order. Each job gets a per-symbol deadline and one retry.
func (p *Pipeline) runPool(ctx context.Context, works []symbolWork, fn func(context.Context, symbolWork) symbolOutcome) []symbolOutcome {
	out := make([]symbolOutcome, len(works))
	sem := make(chan struct{}, p.cfg.Workers)
	var wg sync.WaitGroup

	for i, w := range works {
		wg.Add(1)
		go func(i int, w symbolWork) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out[i] = p.attempt(ctx, w, fn)
			if out[i].err != nil && ctx.Err() == nil {
				p.deps.Log.Warn().Str("symbol", w.event.Symbol).Err(out[i].err).Msg("symbol attempt failed, retrying")
				out[i] = p.attempt(ctx, w, fn)
			}
		}(i, w)
	}
	wg.Wait()

	sort.SliceStable(out, func(a, b int) bool { return out[a].symbol < out[b].symbol })
	return out
}

func (p *Pipeline) attempt(ctx context.Context, w symbolWork, fn func(context.Context, symbolWork) symbolOutcome) symbolOutcome {
	sctx, cancel := context.WithTimeout(ctx, p.cfg.SymbolTimeout)
	defer cancel()
	o := fn(sctx, w)
	o.symbol = w.event.Symbol
	return o
}

// fetchSymbol is the shared per-symbol job: resolve the event expiry window,
// pull the three chains and price history, and extract the raw vector.
func (p *Pipeline) fetchSymbol(ctx context.Context, w symbolWork) symbolOutcome {
	sym := w.event.Symbol

	expiries, err := p.deps.Chains.Expiries(ctx, sym)
	if err != nil {
		return symbolOutcome{err: err}
	}

	var window events.Window
	if w.eventExpiry != nil {
		window = events.WindowAround(*w.eventExpiry, expiries)
	} else {
		window = events.FindWindow(w.event.At, expiries)
		val := events.Validate(window, w.event.At, p.cfg.Expiry)
		if !val.Valid {
			return symbolOutcome{skip: "no tradable event expiry", window: window}
		}
	}

	var chains signals.ChainSet
	chains.Event, err = p.deps.Chains.Chain(ctx, sym, *window.Event)
	if err != nil {
		return symbolOutcome{err: err}
	}
	if window.Prev != nil {
		if prev, perr := p.deps.Chains.Chain(ctx, sym, *window.Prev); perr == nil {
			chains.Prev = prev
		}
	}
	if window.Next != nil {
		if next, nerr := p.deps.Chains.Chain(ctx, sym, *window.Next); nerr == nil {
			chains.Next = next
		}
	}

	stockBars, err := p.deps.Prices.DailyBars(ctx, sym, time.Now(), 90)
	if err != nil {
		return symbolOutcome{err: err}
	}
	sectorBars, err := p.deps.Prices.DailyBars(ctx, p.cfg.SectorProxy, time.Now(), 90)
	if err != nil {
		return symbolOutcome{err: err}
	}

	baseline := signals.EstimateBaseline(stockBars)
	now := time.Now()
	vector := signals.Extract(signals.Inputs{
		Symbol:       sym,
		TradeDate:    now,
		AsOf:         now,
		EventExpiry:  window.Event,
		Chains:       chains,
		Baseline:     &baseline,
		StockBars:    stockBars,
		SectorBars:   sectorBars,
		LookbackDays: p.cfg.LookbackDays,
	})

	return symbolOutcome{vector: vector, chains: chains, window: window}
}

// universe resolves the earnings events this cycle should score. The window
// covers tonight's after-close reports and tomorrow's pre-open reports.
func (p *Pipeline) universe(ctx context.Context, now time.Time) ([]domain.EarningsEvent, error) {
	day := domain.DateOf(now)
	from := day.Add(13 * time.Hour)
	to := day.AddDate(0, 0, 1).Add(6*time.Hour + 30*time.Minute)

	evts, err := p.deps.EarningsRepo.InWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(p.cfg.Universe) == 0 {
		return evts, nil
	}

	allowed := make(map[string]struct{}, len(p.cfg.Universe))
	for _, s := range p.cfg.Universe {
		allowed[s] = struct{}{}
	}
	var filtered []domain.EarningsEvent
	for _, e := range evts {
		if _, ok := allowed[e.Symbol]; ok {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// persistSnapshots records contract identities and market observations for
// every chain touched this cycle. Persistence failures are logged, not
// fatal: the score is the product, the snapshot is the audit trail.
func (p *Pipeline) persistSnapshots(ctx context.Context, outcomes []symbolOutcome) {
	var contracts []domain.OptionContract
	var snaps []domain.MarketSnapshot
	for _, o := range outcomes {
		for _, set := range [][]domain.ContractSnapshot{o.chains.Event, o.chains.Prev, o.chains.Next} {
			for _, cs := range set {
				contracts = append(contracts, cs.Contract)
				snaps = append(snaps, cs.Market)
			}
		}
	}
	if len(contracts) == 0 {
		return
	}
	if err := p.deps.Contracts.UpsertBatch(ctx, contracts); err != nil {
		p.deps.Log.Error().Err(err).Msg("failed to persist contracts")
	}
	if err := p.deps.Snapshots.InsertBatch(ctx, snaps); err != nil {
		p.deps.Log.Error().Err(err).Msg("failed to persist snapshots")
	}
}

// scoreOutcomes runs the cohort barrier: normalize all survivors together,
// score them, and fold results into the report.
func (p *Pipeline) scoreOutcomes(report *CycleReport, outcomes []symbolOutcome, reg *domain.Registry, scorer *scoring.Scorer) []scoring.CohortEntry {
	var vectors []*domain.RawSignalVector
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.Results = append(report.Results, SymbolResult{Symbol: o.symbol, Status: StatusFailed, Reason: o.err.Error()})
		case o.skip != "":
			report.Results = append(report.Results, SymbolResult{Symbol: o.symbol, Status: StatusSkipped, Reason: o.skip})
		default:
			vectors = append(vectors, o.vector)
		}
	}

	entries := scoring.ScoreCohort(vectors, reg, normalize.Config{WinsorStd: p.cfg.Winsor}, scorer)
	for i := range entries {
		report.Results = append(report.Results, SymbolResult{
			Symbol: entries[i].Symbol,
			Status: StatusOK,
			Score:  entries[i].Score,
		})
	}
	sort.SliceStable(report.Results, func(a, b int) bool { return report.Results[a].Symbol < report.Results[b].Symbol })
	return entries
}

// observe records cycle metrics when a registry is wired.
func (p *Pipeline) observe(phase string, report *CycleReport, err error) {
	if p.deps.Metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.deps.Metrics.CycleRuns.WithLabelValues(phase, outcome).Inc()
	p.deps.Metrics.CycleDuration.WithLabelValues(phase).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	for _, res := range report.Results {
		p.deps.Metrics.SymbolResults.WithLabelValues(phase, string(res.Status)).Inc()
		if res.Score != nil {
			p.deps.Metrics.ScoreValue.WithLabelValues(res.Symbol, phase).Set(res.Score.Score)
		}
	}
}
