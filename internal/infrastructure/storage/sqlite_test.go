package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/meme_trade_engine/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTradeRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	opened := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	rec := &domain.TradeRecord{
		PositionID:  "p-1",
		Token:       "TURBO",
		Action:      domain.ActionBuy,
		Size:        20,
		EntryPrice:  1.0,
		ExitPrice:   0.94,
		PnL:         -1.2,
		CloseReason: domain.CloseStopLoss,
		OpenedAt:    opened,
		ClosedAt:    opened.Add(2 * time.Hour),
		HoldTime:    2 * time.Hour,
	}
	require.NoError(t, store.SaveTradeRecord(ctx, rec))

	// Saving the same position id again must not duplicate the row.
	require.NoError(t, store.SaveTradeRecord(ctx, rec))

	records, err := store.ListTradeRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, "p-1", got.PositionID)
	assert.Equal(t, domain.CloseStopLoss, got.CloseReason)
	assert.InDelta(t, -1.2, got.PnL, 1e-9)
	assert.Equal(t, 2*time.Hour, got.HoldTime)
	assert.True(t, got.OpenedAt.Equal(opened))
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveSnapshot(ctx, &domain.PortfolioSnapshot{
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
			TotalValue:    1000 + float64(i),
			Cash:          900,
			OpenPositions: i,
		}))
	}

	snaps, err := store.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	// Newest first.
	assert.InDelta(t, 1002, snaps[0].TotalValue, 1e-9)
	assert.Equal(t, 2, snaps[0].OpenPositions)
}
