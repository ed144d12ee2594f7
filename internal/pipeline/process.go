package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stockticker/internal/actor"
	"stockticker/internal/stats"
)

// processHandler is the middle pipeline stage: it turns each fetched
// series into a StatRow, streams the row to the console sink right
// away, and forwards the chunk to the writer and the collector.
type processHandler struct {
	window    int
	console   *ConsoleSink
	writer    *actor.Ref
	collector *actor.Ref
	log       *zap.Logger
}

func (h *processHandler) Handle(_ context.Context, msg actor.Message) error {
	req, ok := msg.(ProcessRequest)
	if !ok {
		return fmt.Errorf("process: unexpected message %q", msg.Kind())
	}

	rows := make([]StatRow, 0, len(req.Series))
	for _, s := range req.Series {
		if s.Err != nil {
			// Already reported by the fetch stage; the symbol is
			// retried on the next tick.
			continue
		}
		if len(s.Closes) == 0 {
			h.log.Warn("no data for symbol", zap.String("symbol", s.Symbol))
			continue
		}

		row := computeRow(req.From, s.Symbol, s.Closes, h.window)
		h.console.Row(row)
		rows = append(rows, row)
	}

	if h.collector != nil {
		if err := h.collector.Send(CollectRequest{Tick: req.Tick, Chunks: req.Chunks, Rows: rows}); err != nil {
			h.log.Warn("collector unavailable", zap.Error(err))
		}
	}

	return h.writer.Send(WriteRequest{Tick: req.Tick, Rows: rows, Start: req.Start})
}

// computeRow derives the summary statistics for one symbol. closes
// must be non-empty.
func computeRow(periodStart time.Time, symbol string, closes []float64, window int) StatRow {
	last := closes[len(closes)-1]
	_, rel, _ := stats.Difference(closes)
	min, _ := stats.Min(closes)
	max, _ := stats.Max(closes)

	avg := 0.0
	if sma := stats.MovingAverage(closes, window); len(sma) > 0 {
		avg = sma[len(sma)-1]
	}

	return StatRow{
		PeriodStart: periodStart,
		Symbol:      symbol,
		Price:       last,
		PctChange:   rel * 100.0,
		Min:         min,
		Max:         max,
		Avg:         avg,
	}
}
