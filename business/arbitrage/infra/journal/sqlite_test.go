package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='decisions'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "decisions", name)
}

func TestSQLiteRecordAndRecent(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	placed := &domain.Decision{
		CycleID:  "cycle-1",
		Strategy: "graph-arbitrage",
		Time:     base,
		Held:     "USD",
		Path:     domain.Path{domain.Bid("USD"), domain.Ask("BTC"), domain.Bid("BTC"), domain.Ask("USD")},
		Signal:   domain.SignalBuy,
		Product:  domain.CurrencyPair{Base: "BTC", Quote: "USD"},
		Spread:   decimal.RequireFromString("2"),
		Outcome:  domain.OutcomeOrderPlaced,
		OrderID:  "order-1",
		Price:    decimal.RequireFromString("0.5"),
		Size:     decimal.RequireFromString("200"),
	}
	rejected := &domain.Decision{
		CycleID:  "cycle-2",
		Strategy: "graph-arbitrage",
		Time:     base.Add(time.Second),
		Held:     "USD",
		Outcome:  domain.OutcomeOrderRejected,
		Reason:   "insufficient funds",
	}

	require.NoError(t, j.Record(ctx, placed))
	require.NoError(t, j.Record(ctx, rejected))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "cycle-2", entries[0].CycleID)
	assert.Equal(t, domain.OutcomeOrderRejected, entries[0].Outcome)
	assert.Equal(t, "insufficient funds", entries[0].Reason)
	assert.Empty(t, entries[0].Product)
	assert.Empty(t, entries[0].Size)

	got := entries[1]
	assert.Len(t, got.ID, 26)
	assert.Equal(t, "graph-arbitrage", got.Strategy)
	assert.True(t, base.Equal(got.Time))
	assert.Equal(t, "buy", got.Signal)
	assert.Equal(t, "BTC-USD", got.Product)
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, "0.5", got.Price)
	assert.Equal(t, "200", got.Size)
	assert.Equal(t, "2", got.Spread)
	assert.Equal(t, "USD_bid -> BTC_ask -> BTC_bid -> USD_ask", got.Path)

	limited, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "cycle-2", limited[0].CycleID)
}

func TestSQLiteReopenKeepsEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), &domain.Decision{
		CycleID: "c", Held: "BTC", Outcome: domain.OutcomeOrderCleared, OrderID: "o",
	}))
	require.NoError(t, j.Close())

	j, err = NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	entries, err := j.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.OutcomeOrderCleared, entries[0].Outcome)
}
