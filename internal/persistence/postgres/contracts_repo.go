package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/earnscope/earnscope/internal/domain"
	"github.com/earnscope/earnscope/internal/persistence"
)

type contractsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewContractsRepo creates a PostgreSQL contracts repository.
func NewContractsRepo(db *sqlx.DB, timeout time.Duration) persistence.ContractsRepo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &contractsRepo{db: db, timeout: timeout}
}

// UpsertBatch inserts contracts, skipping option symbols already known.
// Contract identity is immutable so conflicts carry no new information.
func (r *contractsRepo) UpsertBatch(ctx context.Context, contracts []domain.OptionContract) error {
	if len(contracts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(contracts)/500+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO option_contracts (option_symbol, symbol, expiry, strike, option_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (option_symbol) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range contracts {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid contract in batch: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, c.OptionSymbol, c.Symbol, c.Expiry, c.Strike, c.Type); err != nil {
			return fmt.Errorf("failed to insert contract %s: %w", c.OptionSymbol, err)
		}
	}
	return tx.Commit()
}
