package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/earnscope/earnscope/internal/domain"
)

func TestEarningsUpsertBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEarningsRepo(db, time.Second)

	events := []domain.EarningsEvent{
		{Symbol: "AAPL", At: time.Date(2026, 8, 27, 16, 30, 0, 0, time.UTC)},
		{Symbol: "MSFT", At: time.Date(2026, 8, 25, 8, 0, 0, 0, time.UTC)},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO earnings_events`)
	for _, e := range events {
		prep.ExpectExec().
			WithArgs(e.Symbol, e.At).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.UpsertBatch(context.Background(), events))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEarningsInWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEarningsRepo(db, time.Second)

	from := time.Date(2026, 8, 24, 13, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 25, 6, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"symbol", "earnings_ts"}).
		AddRow("AAPL", time.Date(2026, 8, 24, 16, 30, 0, 0, time.UTC)).
		AddRow("MSFT", time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`SELECT symbol, earnings_ts`).
		WithArgs(from, to).
		WillReturnRows(rows)

	got, err := repo.InWindow(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, "MSFT", got[1].Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}
