// Package actor implements a minimal local actor runtime: bounded
// mailboxes, sequential per-actor message loops, and a system that
// owns actor lifecycles. Stages of the pipeline interact only through
// lightweight Refs; actor state is never shared.
package actor

import (
	"context"

	"go.uber.org/atomic"
)

// Message is anything that can be delivered to an actor. Kind returns
// a stable tag used for dispatch logging and diagnostics.
type Message interface {
	Kind() string
}

// Handler processes the messages delivered to one actor. Handle is
// invoked for one message at a time; an actor never observes two
// concurrent Handle calls. Returning an error marks the message as
// failed but does not stop the actor's loop.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Ref is the address of a spawned actor. It is the only way to
// interact with the actor; the mailbox and handler state behind it are
// never exposed. Refs are cheap to copy and safe for concurrent use.
type Ref struct {
	name    string
	mailbox *Mailbox
	done    chan struct{}
	alive   *atomic.Bool
}

// Name returns the actor's logical address within its system.
func (r *Ref) Name() string { return r.name }

// Send delivers msg to the actor, blocking while its mailbox is full.
// It returns ErrMailboxClosed when the actor has been stopped; callers
// that must survive a dead actor can respawn it through the system.
func (r *Ref) Send(msg Message) error {
	return r.mailbox.Send(msg)
}

// Alive reports whether the actor's message loop is still running.
func (r *Ref) Alive() bool { return r.alive.Load() }

// MailboxLen returns the current occupancy of the actor's mailbox.
func (r *Ref) MailboxLen() int { return r.mailbox.Len() }
