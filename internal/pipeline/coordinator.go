package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"stockticker/internal/actor"
)

// State is the lifecycle of the pipeline as driven by the shutdown
// coordinator.
type State int32

const (
	// Running is the normal tick loop.
	Running State = iota
	// Draining means shutdown was requested: no new ticks are
	// admitted and actors are being stopped in dependency order.
	Draining
	// Stopped means every actor has terminated and the durable sink
	// is closed.
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// coordinator drains and stops the pipeline exactly once. Actors are
// stopped upstream-first (fetch, process, writer, collector) so that
// no stage keeps producing input for an already-stopped consumer; each
// stop lets the actor's queued messages drain first.
type coordinator struct {
	system *actor.System
	// order holds logical actor addresses upstream-first; stopping by
	// address picks up respawned replacements.
	order   []string
	sink    *CSVSink
	cancel  context.CancelFunc
	runDone <-chan struct{}
	grace   time.Duration

	state   *atomic.Int32
	once    sync.Once
	stopped chan struct{}
	log     *zap.Logger
}

func (c *coordinator) State() State { return State(c.state.Load()) }

// RequestShutdown begins draining. Safe to call from any goroutine and
// from signal handlers; only the first call has an effect.
func (c *coordinator) RequestShutdown() {
	c.once.Do(func() { go c.drain() })
}

// AwaitStopped blocks until the pipeline reaches Stopped.
func (c *coordinator) AwaitStopped() { <-c.stopped }

func (c *coordinator) drain() {
	c.state.Store(int32(Draining))
	c.log.Info("shutdown requested; draining pipeline")

	// Stop admitting ticks.
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), c.grace)
	defer cancel()

	var err error
	for _, name := range c.order {
		ref, ok := c.system.Ref(name)
		if !ok {
			continue
		}
		err = multierr.Append(err, c.system.Stop(ctx, ref))
	}
	if err != nil {
		c.log.Warn("grace period exceeded; in-flight rows may be lost", zap.Error(err))
	}

	// Closing the fetch mailboxes has unblocked the orchestrator if it
	// was mid-dispatch; wait for its loop to exit before touching the
	// sink.
	<-c.runDone

	if cerr := c.sink.Close(); cerr != nil {
		c.log.Warn("closing csv sink", zap.Error(cerr))
	}

	c.state.Store(int32(Stopped))
	c.log.Info("pipeline stopped")
	close(c.stopped)
}
