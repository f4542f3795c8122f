// Package pipeline implements the three scoring phases: the post-close
// batch, the pre-market open-interest update, and the intraday nowcast.
// Each phase fans symbol work out to a bounded pool, joins at the cohort
// barrier for cross-sectional normalization, and persists its results.
package pipeline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/earnscope/earnscope/internal/domain"
)

// Phase names.
const (
	PhasePostClose = "post_close"
	PhasePreMarket = "pre_market"
	PhaseIntraday  = "intraday"
)

// ErrCohortInvalid aborts a cycle whose failure share crossed the discard
// threshold. Nothing from a discarded cycle is persisted.
var ErrCohortInvalid = errors.New("pipeline: too many symbol failures, cohort discarded")

// ErrEmptyUniverse reports a cycle with no symbols to score.
var ErrEmptyUniverse = errors.New("pipeline: no earnings symbols in window")

// SymbolStatus classifies one symbol's outcome in a cycle.
type SymbolStatus string

const (
	StatusOK      SymbolStatus = "ok"
	StatusSkipped SymbolStatus = "skipped"
	StatusFailed  SymbolStatus = "failed"
)

// SymbolResult is one symbol's outcome: a score for StatusOK, a reason
// otherwise.
type SymbolResult struct {
	Symbol string                   `json:"symbol"`
	Status SymbolStatus             `json:"status"`
	Reason string                   `json:"reason,omitempty"`
	Score  *domain.DirectionalScore `json:"score,omitempty"`
}

// CycleReport is the full record of one phase run.
type CycleReport struct {
	RunID      uuid.UUID      `json:"run_id"`
	Phase      string         `json:"phase"`
	TradeDate  time.Time      `json:"trade_date"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []SymbolResult `json:"results"`
	Discarded  bool           `json:"discarded"`
}

// newReport seeds a report for a phase run.
func newReport(phase string, tradeDate time.Time) *CycleReport {
	return &CycleReport{
		RunID:     uuid.New(),
		Phase:     phase,
		TradeDate: domain.DateOf(tradeDate),
		StartedAt: time.Now(),
	}
}

// Scored returns the results that produced a score.
func (r *CycleReport) Scored() []SymbolResult {
	var out []SymbolResult
	for _, res := range r.Results {
		if res.Status == StatusOK && res.Score != nil {
			out = append(out, res)
		}
	}
	return out
}

// FailureShare is the fraction of non-skipped symbols that failed.
func (r *CycleReport) FailureShare() float64 {
	attempted, failed := 0, 0
	for _, res := range r.Results {
		if res.Status == StatusSkipped {
			continue
		}
		attempted++
		if res.Status == StatusFailed {
			failed++
		}
	}
	if attempted == 0 {
		return 0
	}
	return float64(failed) / float64(attempted)
}
