package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stockticker/internal/actor"
)

// collectorHandler accumulates chunk results into complete per-tick
// batches and retains the most recent ones in a bounded buffer. A
// batch becomes visible to Tail queries only once every chunk of its
// tick has arrived, so a reader can never observe half a tick.
//
// All state lives inside the handler; the actor's sequential message
// loop is the only thing touching it.
type collectorHandler struct {
	capacity int
	open     map[uint64]*tickBatch
	batches  [][]StatRow
	log      *zap.Logger
}

type tickBatch struct {
	expected int
	received int
	rows     []StatRow
}

func newCollectorHandler(capacity int, log *zap.Logger) *collectorHandler {
	return &collectorHandler{
		capacity: capacity,
		open:     make(map[uint64]*tickBatch),
		log:      log,
	}
}

func (h *collectorHandler) Handle(_ context.Context, msg actor.Message) error {
	switch req := msg.(type) {
	case CollectRequest:
		h.collect(req)
		return nil
	case TailRequest:
		h.tail(req)
		return nil
	default:
		return fmt.Errorf("collector: unexpected message %q", msg.Kind())
	}
}

func (h *collectorHandler) collect(req CollectRequest) {
	b := h.open[req.Tick]
	if b == nil {
		b = &tickBatch{expected: req.Chunks}
		h.open[req.Tick] = b
	}
	b.received++
	b.rows = append(b.rows, req.Rows...)

	if b.received < b.expected {
		return
	}

	// Batch complete; publish it and evict the oldest beyond capacity.
	delete(h.open, req.Tick)
	h.batches = append(h.batches, b.rows)
	if len(h.batches) > h.capacity {
		h.batches = h.batches[len(h.batches)-h.capacity:]
	}
	h.log.Debug("batch complete",
		zap.Uint64("tick", req.Tick), zap.Int("rows", len(b.rows)))
}

func (h *collectorHandler) tail(req TailRequest) {
	n := req.N
	if n > len(h.batches) {
		n = len(h.batches)
	}
	out := make([][]StatRow, 0, n)
	for _, batch := range h.batches[len(h.batches)-n:] {
		cp := make([]StatRow, len(batch))
		copy(cp, batch)
		out = append(out, cp)
	}
	req.Reply <- out
}
