package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/persistence"
)

// scoreRow is the relational layout shared by the daily and intraday score
// tables.
type scoreRow struct {
	Symbol         string     `db:"symbol"`
	TradeDate      time.Time  `db:"trade_date"`
	AsOf           time.Time  `db:"asof_ts"`
	EventExpiry    *time.Time `db:"event_expiry"`
	Score          float64    `db:"score"`
	Smoothed       *float64   `db:"score_ewma"`
	Decision       string     `db:"decision"`
	Direction      string     `db:"direction"`
	Structure      string     `db:"structure"`
	Conviction     string     `db:"conviction"`
	SizeFactor     float64    `db:"size_factor"`
	Notes          string     `db:"notes"`
	MissingSignals int        `db:"missing_signals"`
	LowConfidence  bool       `db:"low_confidence"`
}

func toRow(s *domain.DirectionalScore) scoreRow {
	return scoreRow{
		Symbol:         s.Symbol,
		TradeDate:      s.TradeDate,
		AsOf:           s.AsOf,
		EventExpiry:    s.EventExpiry,
		Score:          s.Score,
		Smoothed:       s.Smoothed,
		Decision:       string(s.Decision),
		Direction:      string(s.Direction),
		Structure:      string(s.Structure),
		Conviction:     string(s.Conviction),
		SizeFactor:     s.SizeFactor,
		Notes:          s.Notes,
		MissingSignals: s.MissingSignals,
		LowConfidence:  s.LowConfidence,
	}
}

func (r scoreRow) toDomain() domain.DirectionalScore {
	return domain.DirectionalScore{
		Symbol:         r.Symbol,
		TradeDate:      r.TradeDate,
		AsOf:           r.AsOf,
		EventExpiry:    r.EventExpiry,
		Score:          r.Score,
		Smoothed:       r.Smoothed,
		Decision:       domain.Decision(r.Decision),
		Direction:      domain.Decision(r.Direction),
		Structure:      domain.Structure(r.Structure),
		Conviction:     domain.Conviction(r.Conviction),
		SizeFactor:     r.SizeFactor,
		Notes:          r.Notes,
		MissingSignals: r.MissingSignals,
		LowConfidence:  r.LowConfidence,
	}
}

type dailyScoresRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDailyScoresRepo creates a PostgreSQL daily scores repository.
func NewDailyScoresRepo(db *sqlx.DB, timeout time.Duration) persistence.DailyScoresRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &dailyScoresRepo{db: db, timeout: timeout}
}

// Upsert writes the symbol's score for the trade date, replacing any prior
// run's row. Daily scores are one row per (trade_date, symbol).
func (r *dailyScoresRepo) Upsert(ctx context.Context, score *domain.DirectionalScore) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO daily_scores
			(trade_date, symbol, asof_ts, event_expiry, score, score_ewma, decision, direction,
			 structure, conviction, size_factor, notes, missing_signals, low_confidence)
		VALUES (:trade_date, :symbol, :asof_ts, :event_expiry, :score, :score_ewma, :decision, :direction,
			:structure, :conviction, :size_factor, :notes, :missing_signals, :low_confidence)
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			asof_ts = EXCLUDED.asof_ts,
			event_expiry = EXCLUDED.event_expiry,
			score = EXCLUDED.score,
			score_ewma = EXCLUDED.score_ewma,
			decision = EXCLUDED.decision,
			direction = EXCLUDED.direction,
			structure = EXCLUDED.structure,
			conviction = EXCLUDED.conviction,
			size_factor = EXCLUDED.size_factor,
			notes = EXCLUDED.notes,
			missing_signals = EXCLUDED.missing_signals,
			low_confidence = EXCLUDED.low_confidence`

	if _, err := r.db.NamedExecContext(ctx, query, toRow(score)); err != nil {
		return fmt.Errorf("failed to upsert daily score for %s: %w", score.Symbol, err)
	}
	return nil
}

// ByDate returns every symbol's score for the trade date.
func (r *dailyScoresRepo) ByDate(ctx context.Context, tradeDate time.Time) ([]domain.DirectionalScore, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT trade_date, symbol, asof_ts, event_expiry, score, score_ewma, decision, direction,
			structure, conviction, size_factor, notes, missing_signals, low_confidence
		FROM daily_scores
		WHERE trade_date = $1
		ORDER BY symbol`

	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, query, tradeDate); err != nil {
		return nil, fmt.Errorf("failed to query daily scores: %w", err)
	}
	out := make([]domain.DirectionalScore, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

type intradayScoresRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewIntradayScoresRepo creates a PostgreSQL intraday scores repository.
func NewIntradayScoresRepo(db *sqlx.DB, timeout time.Duration) persistence.IntradayScoresRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &intradayScoresRepo{db: db, timeout: timeout}
}

// Insert appends one intraday observation. The series is append-only so the
// full day can be replayed.
func (r *intradayScoresRepo) Insert(ctx context.Context, score *domain.DirectionalScore) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO intraday_scores
			(trade_date, symbol, asof_ts, event_expiry, score, score_ewma, decision, direction,
			 structure, conviction, size_factor, notes, missing_signals, low_confidence)
		VALUES (:trade_date, :symbol, :asof_ts, :event_expiry, :score, :score_ewma, :decision, :direction,
			:structure, :conviction, :size_factor, :notes, :missing_signals, :low_confidence)`

	if _, err := r.db.NamedExecContext(ctx, query, toRow(score)); err != nil {
		return fmt.Errorf("failed to insert intraday score for %s: %w", score.Symbol, err)
	}
	return nil
}

// Latest returns the most recent intraday score per symbol for the day.
func (r *intradayScoresRepo) Latest(ctx context.Context, tradeDate time.Time) ([]domain.DirectionalScore, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT DISTINCT ON (symbol)
			trade_date, symbol, asof_ts, event_expiry, score, score_ewma, decision, direction,
			structure, conviction, size_factor, notes, missing_signals, low_confidence
		FROM intraday_scores
		WHERE trade_date = $1
		ORDER BY symbol, asof_ts DESC`

	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, query, tradeDate); err != nil {
		return nil, fmt.Errorf("failed to query latest intraday scores: %w", err)
	}
	out := make([]domain.DirectionalScore, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// History returns one symbol's intraday series for the day, oldest first.
func (r *intradayScoresRepo) History(ctx context.Context, tradeDate time.Time, symbol string) ([]domain.DirectionalScore, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT trade_date, symbol, asof_ts, event_expiry, score, score_ewma, decision, direction,
			structure, conviction, size_factor, notes, missing_signals, low_confidence
		FROM intraday_scores
		WHERE trade_date = $1 AND symbol = $2
		ORDER BY asof_ts`

	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, query, tradeDate, symbol); err != nil {
		return nil, fmt.Errorf("failed to query intraday history for %s: %w", symbol, err)
	}
	out := make([]domain.DirectionalScore, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
