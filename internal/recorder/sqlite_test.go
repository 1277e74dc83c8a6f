package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/model"
)

func TestSQLiteRecorder(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	defer r.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	trade := model.NewEvent(model.EventTradeCompleted, base)
	trade.Side = model.ActionBuy
	trade.Sold = decimal.NewFromInt(23_437_500)
	trade.Bought = decimal.NewFromInt(117_187)
	trade.SlippageBps = decimal.NewFromInt(3)

	swapErr := model.NewEvent(model.EventSwapError, base.Add(time.Minute))
	swapErr.Reason = model.CodeTransferFailed

	require.NoError(t, r.RecordEvent(ctx, trade))
	require.NoError(t, r.HandleEvent(ctx, swapErr))
	// duplicate deliveries are ignored
	require.NoError(t, r.RecordEvent(ctx, trade))

	events, err := r.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.EventSwapError, events[0].Type)
	assert.Equal(t, model.CodeTransferFailed, events[0].Reason)

	got := events[1]
	assert.Equal(t, trade.ID, got.ID)
	assert.Equal(t, model.ActionBuy, got.Side)
	assert.True(t, got.Sold.Equal(trade.Sold))
	assert.True(t, got.Bought.Equal(trade.Bought))
	assert.True(t, got.Time.Equal(base))

	require.NoError(t, r.RecordSnapshot(ctx, model.PoolSummary{
		TotalValue: decimal.NewFromInt(10_000_000_000),
		TWAP:       model.TWAPState{Status: model.TWAPInProgress},
	}))
	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM pool_snapshots`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordEvent(context.Background(), model.Event{}))
	events, err := r.RecentEvents(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, r.Close())
}
