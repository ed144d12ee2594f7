package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stockticker/internal/actor"
	"stockticker/pkg/quote"
)

// fetchHandler is the first pipeline stage: it retrieves the series
// for every symbol of a chunk concurrently and forwards the results
// downstream. Each fetch actor has a fixed process actor as its next
// hop.
type fetchHandler struct {
	provider quote.Provider
	timeout  time.Duration
	next     *actor.Ref
	log      *zap.Logger
}

func (h *fetchHandler) Handle(ctx context.Context, msg actor.Message) error {
	req, ok := msg.(FetchRequest)
	if !ok {
		return fmt.Errorf("fetch: unexpected message %q", msg.Kind())
	}

	// One slot per symbol keeps chunk order stable regardless of
	// completion order.
	series := make([]SymbolSeries, len(req.Chunk))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range req.Chunk {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, h.timeout)
			defer cancel()

			closes, err := h.provider.ClosingPrices(cctx, symbol, req.From, req.To)
			if err != nil {
				h.log.Warn("fetch failed; skipping symbol this tick",
					zap.String("symbol", symbol),
					zap.Bool("transient", quote.IsTransient(err)),
					zap.Error(err))
			}
			series[i] = SymbolSeries{Symbol: symbol, Closes: closes, Err: err}
			return nil
		})
	}
	// Per-symbol errors are recorded in the series, never returned.
	_ = g.Wait()

	return h.next.Send(ProcessRequest{
		Tick:   req.Tick,
		Chunks: req.Chunks,
		From:   req.From,
		Series: series,
		Start:  req.Start,
	})
}
