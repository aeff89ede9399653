package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Sink receives events on the dispatcher goroutine.
type Sink interface {
	Record(ctx context.Context, name string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name string)

// Record implements Sink.
func (f SinkFunc) Record(ctx context.Context, name string) { f(ctx, name) }

// Dispatcher queues events on a buffered channel and delivers them to its
// sinks from a single goroutine. Events are dropped when the buffer is full
// or the name is not snake_case.
type Dispatcher struct {
	events  chan string
	sinks   []Sink
	logger  *zap.Logger
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts the delivery goroutine. Call Close to drain it.
func NewDispatcher(buffer int, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		events: make(chan string, buffer),
		sinks:  sinks,
		logger: logger,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Track implements Tracker.
func (d *Dispatcher) Track(name string) {
	if !ValidName(name) {
		d.logger.Debug("telemetry: invalid event name dropped", zap.String("event", name))
		d.dropped.Add(1)
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Add(1)
		return
	}
	select {
	case d.events <- name:
	default:
		d.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting events and waits until queued events are delivered
// or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	ctx := context.Background()
	for name := range d.events {
		for _, sink := range d.sinks {
			d.deliver(ctx, sink, name)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, name string) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Warn("telemetry: sink panicked", zap.String("event", name), zap.Any("panic", rec))
		}
	}()
	sink.Record(ctx, name)
}
