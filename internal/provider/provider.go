// Package provider defines the market data interfaces the pipelines consume
// and HTTP implementations for the chain, price, and earnings vendors. Every
// call is rate limited, breaker protected, and bounded by context.
package provider

import (
	"context"
	"time"

	"github.com/earnscope/earnscope/internal/domain"
)

// ChainProvider serves option chain data.
type ChainProvider interface {
	// Expiries lists the listed expiration dates for a symbol.
	Expiries(ctx context.Context, symbol string) ([]time.Time, error)
	// Chain returns the full contract snapshot set for one expiry.
	Chain(ctx context.Context, symbol string, expiry time.Time) ([]domain.ContractSnapshot, error)
}

// PriceProvider serves underlying and sector price history.
type PriceProvider interface {
	// Spot returns the latest trade price for a symbol.
	Spot(ctx context.Context, symbol string) (float64, error)
	// DailyBars returns up to limit daily bars ending at or before asof,
	// oldest first.
	DailyBars(ctx context.Context, symbol string, asof time.Time, limit int) ([]domain.Bar, error)
}

// EarningsProvider serves the earnings calendar.
type EarningsProvider interface {
	// Calendar returns confirmed earnings events in [from, to].
	Calendar(ctx context.Context, from, to time.Time) ([]domain.EarningsEvent, error)
}
