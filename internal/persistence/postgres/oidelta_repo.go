package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/persistence"
)

type oiDeltaRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewOIDeltaRepo creates a PostgreSQL open-interest delta repository.
func NewOIDeltaRepo(db *sqlx.DB, timeout time.Duration) persistence.OIDeltaRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &oiDeltaRepo{db: db, timeout: timeout}
}

// Upsert writes the day's OI delta for a symbol, replacing an earlier
// computation for the same date.
func (r *oiDeltaRepo) Upsert(ctx context.Context, rec domain.OIDeltaRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO oi_deltas (trade_date, symbol, event_expiry, d_oi_calls, d_oi_puts, detail)
		VALUES (:trade_date, :symbol, :event_expiry, :d_oi_calls, :d_oi_puts, :detail)
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			event_expiry = EXCLUDED.event_expiry,
			d_oi_calls = EXCLUDED.d_oi_calls,
			d_oi_puts = EXCLUDED.d_oi_puts,
			detail = EXCLUDED.detail`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to upsert OI delta for %s: %w", rec.Symbol, err)
	}
	return nil
}

// ByDate returns every symbol's OI delta for the trade date.
func (r *oiDeltaRepo) ByDate(ctx context.Context, tradeDate time.Time) ([]domain.OIDeltaRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT trade_date, symbol, event_expiry, d_oi_calls, d_oi_puts, detail
		FROM oi_deltas
		WHERE trade_date = $1
		ORDER BY symbol`

	var recs []domain.OIDeltaRecord
	if err := r.db.SelectContext(ctx, &recs, query, tradeDate); err != nil {
		return nil, fmt.Errorf("failed to query OI deltas: %w", err)
	}
	return recs, nil
}
