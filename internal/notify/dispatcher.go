package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"leave-service/internal/metrics"
)

var (
	ErrQueueFull        = errors.New("notification queue is full")
	ErrDispatcherClosed = errors.New("notification dispatcher is closed")
)

const publishTimeout = 15 * time.Second

// Dispatcher is a bounded in-process queue drained by worker goroutines.
// Notify never blocks: a full queue is reported to the caller and the event is dropped.
type Dispatcher struct {
	queue     chan Event
	publisher Publisher
	workers   int
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(publisher Publisher, queueSize, workers int, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	d := &Dispatcher{
		queue:     make(chan Event, queueSize),
		publisher: publisher,
		workers:   workers,
		logger:    logger,
		metrics:   m,
	}
	m.Runtime.ObserveBacklog(d.Pending)
	return d
}

// Pending is the number of events waiting for a worker.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
	d.logger.Info("notification dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

func (d *Dispatcher) Notify(ctx context.Context, e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.Leaves.RecordNotification(ctx, string(e.Kind), true)
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- e:
		d.metrics.Leaves.RecordNotification(ctx, string(e.Kind), false)
		return nil
	default:
		d.metrics.Leaves.RecordNotification(ctx, string(e.Kind), true)
		d.logger.WarnContext(ctx, "notification queue full, dropping event", "kind", e.Kind, "leave_id", e.Payload.LeaveID)
		return ErrQueueFull
	}
}

// Stop refuses new events and waits for the workers to drain the queue or for
// ctx to expire, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("notification dispatcher stop timed out", "pending", len(d.queue))
		return ctx.Err()
	}
}

func (d *Dispatcher) run(worker int) {
	defer d.wg.Done()
	for e := range d.queue {
		d.publish(worker, e)
	}
}

func (d *Dispatcher) publish(worker int, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification publisher panicked", "worker", worker, "kind", e.Kind, "panic", r)
		}
	}()

	if err := d.publisher.Publish(ctx, e); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish notification",
			"worker", worker,
			"kind", e.Kind,
			"to", e.To,
			"leave_id", e.Payload.LeaveID,
			"error", err,
		)
		return
	}
	d.logger.DebugContext(ctx, "notification published", "worker", worker, "kind", e.Kind, "leave_id", e.Payload.LeaveID)
}
