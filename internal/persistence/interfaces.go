// Package persistence defines the repository interfaces over the relational
// store. Implementations live in subpackages; callers depend only on these
// interfaces so tests can substitute fakes or sqlmock-backed connections.
package persistence

import (
	"context"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

// ContractsRepo stores option contract identities.
type ContractsRepo interface {
	// UpsertBatch inserts contracts, ignoring ones already known.
	UpsertBatch(ctx context.Context, contracts []domain.OptionContract) error
}

// SnapshotsRepo stores append-only per-contract market observations.
type SnapshotsRepo interface {
	InsertBatch(ctx context.Context, snaps []domain.MarketSnapshot) error
	// LatestOIBySymbols returns, per option symbol, the most recent open
	// interest observed strictly before cutoff. Symbols with no such
	// observation are absent from the map.
	LatestOIBySymbols(ctx context.Context, optionSymbols []string, cutoff time.Time) (map[string]int64, error)
}

// EarningsRepo stores the earnings calendar.
type EarningsRepo interface {
	UpsertBatch(ctx context.Context, events []domain.EarningsEvent) error
	// InWindow returns events with timestamps in [from, to).
	InWindow(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error)
}

// DailyScoresRepo stores one score row per (trade_date, symbol). Re-running
// a daily cycle overwrites the prior row for that date.
type DailyScoresRepo interface {
	Upsert(ctx context.Context, score *domain.DirectionalScore) error
	ByDate(ctx context.Context, tradeDate time.Time) ([]domain.DirectionalScore, error)
}

// IntradayScoresRepo stores the append-only intraday score series.
type IntradayScoresRepo interface {
	Insert(ctx context.Context, score *domain.DirectionalScore) error
	// Latest returns the most recent intraday score per symbol for the day.
	Latest(ctx context.Context, tradeDate time.Time) ([]domain.DirectionalScore, error)
	// History returns a symbol's intraday series for the day, oldest first.
	History(ctx context.Context, tradeDate time.Time, symbol string) ([]domain.DirectionalScore, error)
}

// OIDeltaRepo stores day-over-day open interest changes near the money.
type OIDeltaRepo interface {
	Upsert(ctx context.Context, rec domain.OIDeltaRecord) error
	ByDate(ctx context.Context, tradeDate time.Time) ([]domain.OIDeltaRecord, error)
}
