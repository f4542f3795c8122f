package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/persistence"
)

type earningsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewEarningsRepo creates a PostgreSQL earnings calendar repository.
func NewEarningsRepo(db *sqlx.DB, timeout time.Duration) persistence.EarningsRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &earningsRepo{db: db, timeout: timeout}
}

// UpsertBatch inserts calendar entries, replacing a symbol's timestamp when
// the vendor reschedules the report.
func (r *earningsRepo) UpsertBatch(ctx context.Context, events []domain.EarningsEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO earnings_events (symbol, earnings_ts)
		VALUES ($1, $2)
		ON CONFLICT (symbol, earnings_ts) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, e.Symbol, e.At); err != nil {
			return fmt.Errorf("failed to insert earnings event for %s: %w", e.Symbol, err)
		}
	}
	return tx.Commit()
}

// InWindow returns events with timestamps in [from, to), ordered by time
// then symbol so cycles see a stable universe.
func (r *earningsRepo) InWindow(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT symbol, earnings_ts
		FROM earnings_events
		WHERE earnings_ts >= $1 AND earnings_ts < $2
		ORDER BY earnings_ts, symbol`

	var events []domain.EarningsEvent
	if err := r.db.SelectContext(ctx, &events, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to query earnings window: %w", err)
	}
	return events, nil
}
