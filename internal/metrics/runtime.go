package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics observes process state and the notification backlog on
// every collection cycle.
type RuntimeMetrics struct {
	goroutines    metric.Int64ObservableGauge
	heapAlloc     metric.Int64ObservableGauge
	queueDepth    metric.Int64ObservableGauge
	uptimeSeconds metric.Float64ObservableCounter
	startTime     time.Time

	mu      sync.Mutex
	backlog func() int
}

func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	rm := &RuntimeMetrics{
		startTime: time.Now(),
	}

	var err error

	rm.goroutines, err = meter.Int64ObservableGauge(
		"runtime.go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutine}"),
	)
	if err != nil {
		return nil, err
	}

	rm.heapAlloc, err = meter.Int64ObservableGauge(
		"runtime.go.mem.heap_alloc",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	rm.queueDepth, err = meter.Int64ObservableGauge(
		"leave_service.notifications.queue_depth",
		metric.WithDescription("Notification events waiting for a dispatcher worker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	rm.uptimeSeconds, err = meter.Float64ObservableCounter(
		"leave_service.uptime",
		metric.WithDescription("Seconds since the service started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(rm.observe,
		rm.goroutines,
		rm.heapAlloc,
		rm.queueDepth,
		rm.uptimeSeconds,
	)
	if err != nil {
		return nil, err
	}

	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, observer metric.Observer) error {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	observer.ObserveInt64(rm.goroutines, int64(runtime.NumGoroutine()))
	observer.ObserveInt64(rm.heapAlloc, int64(m.HeapAlloc))
	observer.ObserveInt64(rm.queueDepth, int64(rm.Backlog()))
	observer.ObserveFloat64(rm.uptimeSeconds, rm.Uptime().Seconds())
	return nil
}

// ObserveBacklog registers the function reporting queued notifications.
func (rm *RuntimeMetrics) ObserveBacklog(fn func() int) {
	if rm == nil {
		return
	}
	rm.mu.Lock()
	rm.backlog = fn
	rm.mu.Unlock()
}

// Backlog returns the last registered queue depth, or zero.
func (rm *RuntimeMetrics) Backlog() int {
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	fn := rm.backlog
	rm.mu.Unlock()
	if fn == nil {
		return 0
	}
	return fn()
}

// Uptime reports how long the collectors have been running.
func (rm *RuntimeMetrics) Uptime() time.Duration {
	if rm == nil || rm.startTime.IsZero() {
		return 0
	}
	return time.Since(rm.startTime)
}
