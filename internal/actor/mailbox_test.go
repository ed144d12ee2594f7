package actor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct{ seq int }

func (testMsg) Kind() string { return "test" }

func TestMailboxFIFO(t *testing.T) {
	m := NewMailbox(8)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.Send(testMsg{seq: i}))
	}
	for i := 0; i < 5; i++ {
		msg, err := m.Receive()
		require.NoError(t, err)
		assert.Equal(t, i, msg.(testMsg).seq)
	}
}

func TestMailboxBackpressure(t *testing.T) {
	m := NewMailbox(2)
	require.NoError(t, m.Send(testMsg{seq: 0}))
	require.NoError(t, m.Send(testMsg{seq: 1}))
	assert.Equal(t, 2, m.Len())

	// The third send must block until the consumer makes room.
	unblocked := make(chan error, 1)
	go func() {
		unblocked <- m.Send(testMsg{seq: 2})
	}()

	select {
	case <-unblocked:
		t.Fatal("send on a full mailbox returned without blocking")
	case <-time.After(50 * time.Millisecond):
	}
	assert.LessOrEqual(t, m.Len(), m.Cap())

	_, err := m.Receive()
	require.NoError(t, err)
	require.NoError(t, <-unblocked)
	assert.LessOrEqual(t, m.Len(), m.Cap())
}

func TestMailboxCloseDrains(t *testing.T) {
	m := NewMailbox(4)
	require.NoError(t, m.Send(testMsg{seq: 0}))
	require.NoError(t, m.Send(testMsg{seq: 1}))

	m.Close()
	m.Close() // idempotent

	assert.ErrorIs(t, m.Send(testMsg{seq: 2}), ErrMailboxClosed)

	// Pending messages stay receivable after close.
	msg, err := m.Receive()
	require.NoError(t, err)
	assert.Equal(t, 0, msg.(testMsg).seq)
	msg, err = m.Receive()
	require.NoError(t, err)
	assert.Equal(t, 1, msg.(testMsg).seq)

	_, err = m.Receive()
	assert.ErrorIs(t, err, ErrMailboxClosed)
}

func TestMailboxCloseWakesBlockedSender(t *testing.T) {
	m := NewMailbox(1)
	require.NoError(t, m.Send(testMsg{seq: 0}))

	var wg sync.WaitGroup
	wg.Add(1)
	var sendErr error
	go func() {
		defer wg.Done()
		sendErr = m.Send(testMsg{seq: 1})
	}()

	time.Sleep(20 * time.Millisecond)
	m.Close()
	wg.Wait()

	assert.ErrorIs(t, sendErr, ErrMailboxClosed)
}

func TestMailboxDefaultCapacity(t *testing.T) {
	m := NewMailbox(0)
	assert.Equal(t, DefaultMailboxCapacity, m.Cap())
}
