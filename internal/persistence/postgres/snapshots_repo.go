package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/persistence"
)

type snapshotsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotsRepo creates a PostgreSQL snapshots repository.
func NewSnapshotsRepo(db *sqlx.DB, timeout time.Duration) persistence.SnapshotsRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &snapshotsRepo{db: db, timeout: timeout}
}

// InsertBatch appends market observations. Snapshot rows are append-only;
// the same contract observed twice at the same instant is a vendor replay
// and is dropped on conflict.
func (r *snapshotsRepo) InsertBatch(ctx context.Context, snaps []domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(snaps)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_snapshots
			(asof_ts, option_symbol, underlying_px, bid, ask, last, iv, delta, gamma, theta, vega, volume, oi)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (asof_ts, option_symbol) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range snaps {
		_, err := stmt.ExecContext(ctx,
			s.AsOf, s.OptionSymbol, s.UnderlyingPx, s.Bid, s.Ask, s.Last,
			s.IV, s.Delta, s.Gamma, s.Theta, s.Vega, s.Volume, s.OpenInterest)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for %s: %w", s.OptionSymbol, err)
		}
	}
	return tx.Commit()
}

// LatestOIBySymbols returns the most recent open interest per option symbol
// observed strictly before cutoff. Symbols without a prior OI observation
// are absent from the result.
func (r *snapshotsRepo) LatestOIBySymbols(ctx context.Context, optionSymbols []string, cutoff time.Time) (map[string]int64, error) {
	if len(optionSymbols) == 0 {
		return map[string]int64{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT DISTINCT ON (option_symbol) option_symbol, oi
		FROM market_snapshots
		WHERE option_symbol = ANY($1) AND asof_ts < $2 AND oi IS NOT NULL
		ORDER BY option_symbol, asof_ts DESC`

	rows, err := r.db.QueryxContext(ctx, query, pq.Array(optionSymbols), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest OI: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var sym string
		var oi int64
		if err := rows.Scan(&sym, &oi); err != nil {
			return nil, fmt.Errorf("failed to scan OI row: %w", err)
		}
		out[sym] = oi
	}
	return out, rows.Err()
}
