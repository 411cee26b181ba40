package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	err    error
}

func (s *recordingSink) Deliver(_ context.Context, ev Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestDispatcherDeliversEverything(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 3, 100, nil)
	d.Start()

	for i := 0; i < 50; i++ {
		require.NoError(t, d.Notify(context.Background(), "alice", "expense_paid", "paid"))
	}
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 50, sink.count())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, 1, nil)
	d.Start()

	// The worker takes the first event and blocks; the second fills the queue.
	require.NoError(t, d.Notify(context.Background(), "a", "x", ""))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), "b", "x", ""))

	start := time.Now()
	err := d.Notify(context.Background(), "c", "x", "")
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Notify must not block")

	close(sink.block)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, sink.count())
}

func TestDispatcherAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSink{}, 1, 1, nil)
	d.Start()
	require.NoError(t, d.Close(context.Background()))
	require.NoError(t, d.Close(context.Background()))

	assert.ErrorIs(t, d.Notify(context.Background(), "a", "x", ""), ErrClosed)
}

func TestDispatcherSurvivesSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	d := NewDispatcher(sink, 1, 10, nil)
	d.Start()
	require.NoError(t, d.Notify(context.Background(), "a", "x", ""))
	require.NoError(t, d.Notify(context.Background(), "b", "x", ""))
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, sink.count())
}
