package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stockticker/internal/actor"
)

// orchestrator drives the tick loop: on each tick it partitions the
// working set into chunks and fans one FetchRequest per chunk out to
// the fetch pool. Chunks of the same tick run concurrently; a new tick
// is not admitted until every chunk of the previous tick has been
// confirmed flushed by the writer (the tick barrier), so an iteration
// is never partially committed when the next one starts.
type orchestrator struct {
	symbols   []string
	from      time.Time
	interval  time.Duration
	chunkSize int
	window    int
	grace     time.Duration

	system   *actor.System
	fetchers []*actor.Ref
	confirms <-chan uint64
	console  *ConsoleSink
	state    func() State
	log      *zap.Logger
}

// Run executes the tick loop until ctx is cancelled. The first tick
// fires immediately; subsequent ticks follow the configured interval.
func (o *orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	from := o.from
	for tick := uint64(1); ; tick++ {
		if o.state() != Running {
			return
		}

		to := time.Now().UTC()
		o.runTick(ctx, tick, from, to)
		// The next tick's window starts where this one ended.
		from = to

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *orchestrator) runTick(ctx context.Context, tick uint64, from, to time.Time) {
	chunks := chunkSymbols(o.symbols, o.chunkSize)
	o.console.Banner(to, o.window)
	start := time.Now()

	dispatched := 0
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		msg := FetchRequest{
			Tick:   tick,
			Chunk:  chunk,
			Chunks: len(chunks),
			From:   from,
			To:     to,
			Start:  start,
		}
		if err := o.dispatch(i, msg); err != nil {
			o.log.Error("dropping chunk; fetch actor unavailable",
				zap.Uint64("tick", tick),
				zap.Strings("symbols", chunk),
				zap.Error(err))
			continue
		}
		dispatched++
	}

	o.awaitFlushes(ctx, tick, dispatched, start)
}

// dispatch sends the request to the chunk's fetch actor, respawning it
// once if the send hits a closed mailbox. Respawns are suppressed
// while the pipeline is draining.
func (o *orchestrator) dispatch(i int, msg FetchRequest) error {
	idx := i % len(o.fetchers)
	err := o.fetchers[idx].Send(msg)
	if err == nil || o.state() != Running {
		return err
	}

	o.fetchers[idx] = o.system.Respawn(o.fetchers[idx])
	return o.fetchers[idx].Send(msg)
}

// awaitFlushes is the tick barrier: it waits for one writer
// confirmation per dispatched chunk. The wait is bounded; a tick that
// cannot complete within the grace window is reported and released so
// a stalled chunk cannot wedge the scheduler forever. Confirmations
// from ticks that were already released are drained and ignored.
func (o *orchestrator) awaitFlushes(ctx context.Context, tick uint64, dispatched int, start time.Time) {
	timer := time.NewTimer(o.grace)
	defer timer.Stop()

	confirmed := 0
	for confirmed < dispatched {
		select {
		case tk := <-o.confirms:
			if tk == tick {
				confirmed++
			}
		case <-timer.C:
			o.log.Warn("tick incomplete after grace period",
				zap.Uint64("tick", tick),
				zap.Int("confirmed", confirmed),
				zap.Int("dispatched", dispatched))
			return
		case <-ctx.Done():
			return
		}
	}

	o.log.Info("tick complete",
		zap.Uint64("tick", tick),
		zap.Int("chunks", dispatched),
		zap.Duration("took", time.Since(start)))
}
