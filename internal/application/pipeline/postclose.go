package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

// PostClose runs the nightly batch: resolve the earnings universe, extract
// signal vectors for every symbol, normalize and score the cohort with the
// daily profile, persist the scores, and export the predictions CSV.
//
// A cycle whose failure share crosses the threshold is discarded whole:
// a half-empty cohort produces distorted z-scores, and a distorted cohort
// is worse than no cohort.
func (p *Pipeline) PostClose(ctx context.Context, now time.Time) (*CycleReport, error) {
	report := newReport(PhasePostClose, now)
	logger := p.deps.Log.With().Str("phase", PhasePostClose).Str("run_id", report.RunID.String()).Logger()

	universe, err := p.universe(ctx, now)
	if err != nil {
		report.FinishedAt = time.Now()
		p.observe(PhasePostClose, report, err)
		return report, fmt.Errorf("failed to resolve universe: %w", err)
	}
	if len(universe) == 0 {
		report.FinishedAt = time.Now()
		p.observe(PhasePostClose, report, ErrEmptyUniverse)
		return report, ErrEmptyUniverse
	}
	logger.Info().Int("symbols", len(universe)).Msg("post-close cycle started")

	works := make([]symbolWork, len(universe))
	for i, e := range universe {
		works[i] = symbolWork{event: e}
	}
	outcomes := p.runPool(ctx, works, p.fetchSymbol)

	// Check the discard threshold before the cohort barrier: scores from a
	// decimated cohort must never reach storage.
	if share := shareOfFailures(outcomes); share > p.cfg.FailureThreshold {
		report.Discarded = true
		p.scoreless(report, outcomes)
		report.FinishedAt = time.Now()
		p.observe(PhasePostClose, report, ErrCohortInvalid)
		logger.Error().Float64("failure_share", share).Msg("cohort discarded")
		return report, ErrCohortInvalid
	}

	p.persistSnapshots(ctx, outcomes)

	entries := p.scoreOutcomes(report, outcomes, domain.DailySignals(), p.daily)
	if p.deps.Metrics != nil {
		p.deps.Metrics.CohortSize.WithLabelValues(PhasePostClose).Set(float64(len(entries)))
	}

	for _, res := range report.Scored() {
		if err := p.deps.DailyScores.Upsert(ctx, res.Score); err != nil {
			report.FinishedAt = time.Now()
			p.observe(PhasePostClose, report, err)
			return report, fmt.Errorf("failed to persist daily score for %s: %w", res.Symbol, err)
		}
	}

	if path, err := p.exportPredictions(report); err != nil {
		logger.Error().Err(err).Msg("failed to export predictions")
	} else if path != "" {
		logger.Info().Str("path", path).Msg("predictions exported")
	}

	report.FinishedAt = time.Now()
	p.observe(PhasePostClose, report, nil)
	logger.Info().Int("scored", len(report.Scored())).Msg("post-close cycle finished")
	return report, nil
}

// scoreless records per-symbol outcomes without scoring, for discarded
// cycles.
func (p *Pipeline) scoreless(report *CycleReport, outcomes []symbolOutcome) {
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.Results = append(report.Results, SymbolResult{Symbol: o.symbol, Status: StatusFailed, Reason: o.err.Error()})
		case o.skip != "":
			report.Results = append(report.Results, SymbolResult{Symbol: o.symbol, Status: StatusSkipped, Reason: o.skip})
		default:
			report.Results = append(report.Results, SymbolResult{Symbol: o.symbol, Status: StatusSkipped, Reason: "cycle discarded"})
		}
	}
}

// exportPredictions writes the day's scored decisions to
// predictions_YYYYMMDD.csv under the output directory.
func (p *Pipeline) exportPredictions(report *CycleReport) (string, error) {
	scored := report.Scored()
	if len(scored) == 0 {
		return "", nil
	}
	// Strongest signals first; ties keep symbol order.
	sort.SliceStable(scored, func(a, b int) bool {
		return math.Abs(scored[a].Score.Score) > math.Abs(scored[b].Score.Score)
	})
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("predictions_%s.csv", report.TradeDate.Format("20060102")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create predictions file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"trade_date", "symbol", "event_expiry", "score", "decision", "conviction", "structure", "size_factor", "low_confidence"}
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, res := range scored {
		s := res.Score
		expiry := ""
		if s.EventExpiry != nil {
			expiry = s.EventExpiry.Format("2006-01-02")
		}
		row := []string{
			s.TradeDate.Format("2006-01-02"),
			s.Symbol,
			expiry,
			strconv.FormatFloat(s.Score, 'f', 4, 64),
			string(s.Decision),
			string(s.Conviction),
			string(s.Structure),
			strconv.FormatFloat(s.SizeFactor, 'f', 2, 64),
			strconv.FormatBool(s.LowConfidence),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}
