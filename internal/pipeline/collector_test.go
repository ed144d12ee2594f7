package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tailNow(t *testing.T, h *collectorHandler, n int) [][]StatRow {
	t.Helper()
	reply := make(chan [][]StatRow, 1)
	require.NoError(t, h.Handle(context.Background(), TailRequest{N: n, Reply: reply}))
	return <-reply
}

func row(symbol string, price float64) StatRow {
	return StatRow{PeriodStart: time.Unix(0, 0).UTC(), Symbol: symbol, Price: price}
}

func TestCollectorPublishesOnlyCompleteBatches(t *testing.T) {
	h := newCollectorHandler(10, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 1, Chunks: 2, Rows: []StatRow{row("AAPL", 1)}}))
	assert.Empty(t, tailNow(t, h, 5), "half a tick must not be visible")

	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 1, Chunks: 2, Rows: []StatRow{row("MSFT", 2)}}))

	batches := tailNow(t, h, 5)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 2)
}

func TestCollectorKeepsTicksSeparate(t *testing.T) {
	h := newCollectorHandler(10, zap.NewNop())
	ctx := context.Background()

	// Chunks of two ticks interleave.
	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 1, Chunks: 2, Rows: []StatRow{row("AAPL", 1)}}))
	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 2, Chunks: 2, Rows: []StatRow{row("AAPL", 3)}}))
	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 2, Chunks: 2, Rows: []StatRow{row("MSFT", 4)}}))
	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 1, Chunks: 2, Rows: []StatRow{row("MSFT", 2)}}))

	batches := tailNow(t, h, 5)
	require.Len(t, batches, 2)
	assert.Equal(t, 3.0, batches[0][0].Price, "tick 2 completed first")
	assert.Equal(t, 1.0, batches[1][0].Price)
}

func TestCollectorEvictsOldestBeyondCapacity(t *testing.T) {
	h := newCollectorHandler(3, zap.NewNop())
	ctx := context.Background()

	for tick := uint64(1); tick <= 5; tick++ {
		require.NoError(t, h.Handle(ctx, CollectRequest{
			Tick: tick, Chunks: 1, Rows: []StatRow{row("AAPL", float64(tick))},
		}))
	}

	batches := tailNow(t, h, 10)
	require.Len(t, batches, 3)
	assert.Equal(t, 3.0, batches[0][0].Price)
	assert.Equal(t, 5.0, batches[2][0].Price)
}

func TestCollectorTailReturnsCopies(t *testing.T) {
	h := newCollectorHandler(10, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, CollectRequest{Tick: 1, Chunks: 1, Rows: []StatRow{row("AAPL", 1)}}))

	batches := tailNow(t, h, 1)
	require.Len(t, batches, 1)
	batches[0][0].Symbol = "mutated"

	again := tailNow(t, h, 1)
	assert.Equal(t, "AAPL", again[0][0].Symbol)
}

func TestCollectorRejectsUnknownMessage(t *testing.T) {
	h := newCollectorHandler(10, zap.NewNop())

	err := h.Handle(context.Background(), FetchRequest{})
	assert.Error(t, err)
}
