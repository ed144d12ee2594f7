package actor

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// System owns the set of live actors. It creates them, runs each one
// on its own goroutine (the Go scheduler multiplexes those over a
// shared worker pool of OS threads), and is the only component allowed
// to stop or replace them.
type System struct {
	log      *zap.Logger
	capacity int

	mu      sync.Mutex
	actors  map[string]*entry
	order   []string
	stopped bool
}

type entry struct {
	ref      *Ref
	handler  Handler
	capacity int
}

// Option configures a System.
type Option func(*System)

// WithMailboxCapacity sets the default mailbox capacity for spawned
// actors.
func WithMailboxCapacity(n int) Option {
	return func(s *System) { s.capacity = n }
}

// NewSystem creates an empty actor system logging through log.
func NewSystem(log *zap.Logger, opts ...Option) *System {
	s := &System{
		log:      log,
		capacity: DefaultMailboxCapacity,
		actors:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SpawnOption configures a single actor.
type SpawnOption func(*entry)

// WithCapacity overrides the system default mailbox capacity for one
// actor.
func WithCapacity(n int) SpawnOption {
	return func(e *entry) { e.capacity = n }
}

// Spawn creates an actor with its own mailbox and starts its message
// loop. The name is the actor's logical address and must be unique
// within the system.
func (s *System) Spawn(name string, h Handler, opts ...SpawnOption) *Ref {
	e := &entry{handler: h, capacity: s.capacity}
	for _, opt := range opts {
		opt(e)
	}

	ref := &Ref{
		name:    name,
		mailbox: NewMailbox(e.capacity),
		done:    make(chan struct{}),
		alive:   atomic.NewBool(true),
	}
	e.ref = ref

	s.mu.Lock()
	if _, exists := s.actors[name]; !exists {
		s.order = append(s.order, name)
	}
	s.actors[name] = e
	s.mu.Unlock()

	go s.loop(ref, h)

	s.log.Debug("actor started", zap.String("actor", name))
	return ref
}

// Respawn replaces a dead actor with a fresh mailbox and loop, keeping
// its name and handler. If the actor is still alive its current Ref is
// returned unchanged. This is the recovery path when a send fails with
// ErrMailboxClosed.
func (s *System) Respawn(ref *Ref) *Ref {
	s.mu.Lock()
	e, ok := s.actors[ref.name]
	s.mu.Unlock()
	if !ok {
		return ref
	}
	if e.ref.Alive() && !e.ref.mailbox.Closed() {
		return e.ref
	}

	s.log.Warn("respawning dead actor", zap.String("actor", ref.name))
	return s.Spawn(ref.name, e.handler, WithCapacity(e.capacity))
}

// Ref returns the current Ref for a logical address, if any. After a
// respawn this is the live replacement, not the original.
func (s *System) Ref(name string) (*Ref, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.actors[name]
	if !ok {
		return nil, false
	}
	return e.ref, true
}

// Stop closes the actor's mailbox, lets queued messages drain, and
// waits for the in-flight handler to finish before returning. The ctx
// deadline bounds the wait; on expiry the actor keeps draining in the
// background but Stop reports an error.
func (s *System) Stop(ctx context.Context, ref *Ref) error {
	ref.mailbox.Close()
	select {
	case <-ref.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping actor %q: %w", ref.name, ctx.Err())
	}
}

// StopAll stops every live actor in spawn order, collecting errors.
func (s *System) StopAll(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	refs := make([]*Ref, 0, len(s.order))
	for _, name := range s.order {
		refs = append(refs, s.actors[name].ref)
	}
	s.mu.Unlock()

	var err error
	for _, ref := range refs {
		err = multierr.Append(err, s.Stop(ctx, ref))
	}
	return err
}

// loop is the actor's message loop: receive, dispatch, repeat until
// the mailbox is closed and drained.
func (s *System) loop(ref *Ref, h Handler) {
	defer func() {
		ref.alive.Store(false)
		close(ref.done)
	}()

	ctx := context.Background()
	for {
		msg, err := ref.mailbox.Receive()
		if err != nil {
			s.log.Debug("actor stopped", zap.String("actor", ref.name))
			return
		}
		s.dispatch(ctx, ref, h, msg)
	}
}

// dispatch runs the handler for one message. Errors and panics are
// contained here: a poison message is logged and dropped, and the loop
// moves on to the next message.
func (s *System) dispatch(ctx context.Context, ref *Ref, h Handler, msg Message) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panicked",
				zap.String("actor", ref.name),
				zap.String("message", msg.Kind()),
				zap.Any("panic", r))
		}
	}()

	if err := h.Handle(ctx, msg); err != nil {
		s.log.Warn("handler failed",
			zap.String("actor", ref.name),
			zap.String("message", msg.Kind()),
			zap.Error(err))
	}
}
