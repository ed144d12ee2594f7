package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSpawnAndStop(t *testing.T) {
	sys := NewSystem(zap.NewNop())

	var mu sync.Mutex
	var got []int
	ref := sys.Spawn("echo", HandlerFunc(func(_ context.Context, msg Message) error {
		mu.Lock()
		got = append(got, msg.(testMsg).seq)
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, ref.Send(testMsg{seq: i}))
	}

	// Stop must drain everything already queued.
	require.NoError(t, sys.Stop(context.Background(), ref))
	assert.False(t, ref.Alive())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 10)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPoisonMessageDoesNotKillActor(t *testing.T) {
	sys := NewSystem(zap.NewNop())

	handled := make(chan int, 3)
	ref := sys.Spawn("fragile", HandlerFunc(func(_ context.Context, msg Message) error {
		m := msg.(testMsg)
		switch m.seq {
		case 1:
			return errors.New("boom")
		case 2:
			panic("poison")
		default:
			handled <- m.seq
			return nil
		}
	}))

	require.NoError(t, ref.Send(testMsg{seq: 0}))
	require.NoError(t, ref.Send(testMsg{seq: 1}))
	require.NoError(t, ref.Send(testMsg{seq: 2}))
	require.NoError(t, ref.Send(testMsg{seq: 3}))

	assert.Equal(t, 0, <-handled)
	assert.Equal(t, 3, <-handled)

	require.NoError(t, sys.Stop(context.Background(), ref))
}

func TestStopWaitsForInFlightHandler(t *testing.T) {
	sys := NewSystem(zap.NewNop())

	started := make(chan struct{})
	finished := make(chan struct{})
	ref := sys.Spawn("slow", HandlerFunc(func(_ context.Context, _ Message) error {
		close(started)
		time.Sleep(100 * time.Millisecond)
		close(finished)
		return nil
	}))

	require.NoError(t, ref.Send(testMsg{}))
	<-started

	require.NoError(t, sys.Stop(context.Background(), ref))
	select {
	case <-finished:
	default:
		t.Fatal("Stop returned before the in-flight handler finished")
	}
}

func TestStopHonorsDeadline(t *testing.T) {
	sys := NewSystem(zap.NewNop())

	release := make(chan struct{})
	ref := sys.Spawn("stuck", HandlerFunc(func(_ context.Context, _ Message) error {
		<-release
		return nil
	}))
	require.NoError(t, ref.Send(testMsg{}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := sys.Stop(ctx, ref)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, sys.Stop(context.Background(), ref))
}

func TestRespawn(t *testing.T) {
	sys := NewSystem(zap.NewNop())

	handled := make(chan int, 2)
	ref := sys.Spawn("worker", HandlerFunc(func(_ context.Context, msg Message) error {
		handled <- msg.(testMsg).seq
		return nil
	}))

	require.NoError(t, ref.Send(testMsg{seq: 1}))
	assert.Equal(t, 1, <-handled)

	require.NoError(t, sys.Stop(context.Background(), ref))
	assert.ErrorIs(t, ref.Send(testMsg{seq: 2}), ErrMailboxClosed)

	// Respawn revives the same logical address with the same handler.
	ref = sys.Respawn(ref)
	require.NoError(t, ref.Send(testMsg{seq: 3}))
	assert.Equal(t, 3, <-handled)

	// Respawning a live actor is a no-op.
	same := sys.Respawn(ref)
	assert.Same(t, ref, same)

	require.NoError(t, sys.Stop(context.Background(), ref))
}

func TestStopAll(t *testing.T) {
	sys := NewSystem(zap.NewNop())

	for i := 0; i < 5; i++ {
		sys.Spawn(fmt.Sprintf("a-%d", i), HandlerFunc(func(_ context.Context, _ Message) error {
			return nil
		}))
	}

	require.NoError(t, sys.StopAll(context.Background()))
	// Idempotent.
	require.NoError(t, sys.StopAll(context.Background()))
}
