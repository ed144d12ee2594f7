package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stockticker/internal/actor"
	"stockticker/pkg/storage/postgres"
)

// writerHandler is the last pipeline stage and the only owner of the
// durable sink's file handle. It appends each chunk's rows and flushes
// at the end of every message, so an interrupt can never lose more
// than the chunk currently in flight. Flushing only at shutdown would
// lose everything buffered if the process is killed before the
// shutdown hook runs.
type writerHandler struct {
	sink     *CSVSink
	store    *postgres.Client
	confirms chan<- uint64
	log      *zap.Logger
}

func (h *writerHandler) Handle(ctx context.Context, msg actor.Message) error {
	req, ok := msg.(WriteRequest)
	if !ok {
		return fmt.Errorf("writer: unexpected message %q", msg.Kind())
	}

	if err := h.sink.Append(req.Rows); err != nil {
		// Rows stay pending inside the sink and ride along with the
		// next chunk's flush.
		h.log.Warn("csv flush failed; rows kept for retry",
			zap.Uint64("tick", req.Tick),
			zap.Int("pending", h.sink.Pending()),
			zap.Error(err))
	}

	if h.store != nil && len(req.Rows) > 0 {
		records := make([]postgres.StatRecord, 0, len(req.Rows))
		for _, row := range req.Rows {
			records = append(records, postgres.StatRecord{
				PeriodStart: row.PeriodStart.UTC(),
				Symbol:      row.Symbol,
				Price:       row.Price,
				PctChange:   row.PctChange,
				Min:         row.Min,
				Max:         row.Max,
				Avg:         row.Avg,
			})
		}
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := h.store.InsertStatRows(dbCtx, records)
		cancel()
		if err != nil {
			h.log.Warn("failed to mirror rows to postgres",
				zap.Uint64("tick", req.Tick), zap.Error(err))
		}
	}

	h.log.Info("chunk committed",
		zap.Uint64("tick", req.Tick),
		zap.Int("rows", len(req.Rows)),
		zap.Duration("elapsed", time.Since(req.Start)))

	// Confirm the chunk to the tick barrier. The channel is sized for
	// a full tick's worth of chunks; if nobody is draining it (the
	// orchestrator is gone during shutdown) the confirmation is
	// dropped rather than wedging the writer.
	select {
	case h.confirms <- req.Tick:
	default:
	}
	return nil
}
