// Package notify delivers ledger activity events off the request path.
//
// The ledger calls Notify after a transaction commits. Events are queued and
// handed to a Sink by a small worker pool; a full queue drops the event
// instead of blocking the caller.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrQueueFull is returned by Notify when the event was dropped.
	ErrQueueFull = errors.New("notification queue full")
	// ErrClosed is returned by Notify after Close.
	ErrClosed = errors.New("notification dispatcher closed")
)

var (
	eventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_notifications_delivered_total",
		Help: "Notifications handed to the activity sink.",
	})
	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_notifications_failed_total",
		Help: "Notifications the activity sink rejected.",
	})
	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_notifications_dropped_total",
		Help: "Notifications dropped because the queue was full or closed.",
	})
)

// Event is one activity notification for one user.
type Event struct {
	UserID      string
	Action      string
	Description string
}

// Sink receives events from the dispatcher workers.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

const deliverTimeout = 5 * time.Second

// Dispatcher is a bounded, non-blocking notification queue.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	workers int

	mu     sync.RWMutex
	queue  chan Event
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Call Start to begin delivering.
func NewDispatcher(sink Sink, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:    sink,
		logger:  logger,
		workers: workers,
		queue:   make(chan Event, queueSize),
	}
}

// Start launches the workers. They run until Close drains the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		err := d.sink.Deliver(ctx, ev)
		cancel()
		if err != nil {
			eventsFailed.Inc()
			d.logger.Error("Failed to deliver notification", "user_id", ev.UserID, "action", ev.Action, "error", err)
			continue
		}
		eventsDelivered.Inc()
	}
}

// Notify enqueues an event without blocking.
func (d *Dispatcher) Notify(_ context.Context, userID, action, description string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		eventsDropped.Inc()
		return ErrClosed
	}

	select {
	case d.queue <- Event{UserID: userID, Action: action, Description: description}:
		return nil
	default:
		eventsDropped.Inc()
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until queued ones are delivered
// or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
