package actor

import (
	"errors"

	"go.uber.org/atomic"
)

// ErrMailboxClosed is returned by Send after the mailbox has been
// closed, and by Receive once a closed mailbox has been drained.
var ErrMailboxClosed = errors.New("actor: mailbox closed")

// DefaultMailboxCapacity bounds a mailbox when no explicit capacity is
// given. It should be large enough to hold one full fan-out wave of
// the pipeline so that steady-state sends never block.
const DefaultMailboxCapacity = 128

// Mailbox is a bounded FIFO message queue owned by exactly one actor.
// Senders block while the mailbox is full, which is the backpressure
// path from slow consumers back to producers. The single consumer
// drains messages with Receive.
type Mailbox struct {
	ch     chan Message
	quit   chan struct{}
	closed *atomic.Bool
}

// NewMailbox creates a mailbox holding at most capacity messages.
// A capacity below 1 falls back to DefaultMailboxCapacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity < 1 {
		capacity = DefaultMailboxCapacity
	}
	return &Mailbox{
		ch:     make(chan Message, capacity),
		quit:   make(chan struct{}),
		closed: atomic.NewBool(false),
	}
}

// Send enqueues msg, blocking while the mailbox is at capacity.
// It returns ErrMailboxClosed when the mailbox has been closed,
// including while a sender is blocked waiting for space.
func (m *Mailbox) Send(msg Message) error {
	if m.closed.Load() {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	case <-m.quit:
		return ErrMailboxClosed
	}
}

// Receive returns the next message in FIFO order, blocking until one
// arrives. After Close it keeps draining queued messages and returns
// ErrMailboxClosed only once the queue is empty.
func (m *Mailbox) Receive() (Message, error) {
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-m.quit:
		select {
		case msg := <-m.ch:
			return msg, nil
		default:
			return nil, ErrMailboxClosed
		}
	}
}

// Close marks the mailbox closed and wakes any blocked senders.
// It is idempotent. Messages already queued stay receivable.
func (m *Mailbox) Close() {
	if m.closed.CompareAndSwap(false, true) {
		close(m.quit)
	}
}

// Closed reports whether Close has been called.
func (m *Mailbox) Closed() bool { return m.closed.Load() }

// Len returns the number of queued messages.
func (m *Mailbox) Len() int { return len(m.ch) }

// Cap returns the mailbox capacity.
func (m *Mailbox) Cap() int { return cap(m.ch) }
