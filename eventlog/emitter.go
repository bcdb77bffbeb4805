package eventlog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonwraymond/breakercache/observe"
)

// Emitter defaults.
const (
	DefaultQueueSize     = 64
	DefaultMaxTries      = 3
	DefaultRetryInterval = 100 * time.Millisecond
	DefaultWriteTimeout  = 10 * time.Second
)

// Emitter writes events to a Sink without blocking the caller.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Emit never blocks: when QueueSize writes are already in flight the
// event is dropped and logged.
// - Close waits for in-flight writes; events emitted after Close are dropped.
type Emitter struct {
	sink          Sink
	environment   string
	logger        observe.Logger
	now           func() time.Time
	sem           chan struct{}
	maxTries      uint
	retryInterval time.Duration
	writeTimeout  time.Duration

	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithEnvironment sets the environment stamped on every envelope.
func WithEnvironment(env string) EmitterOption {
	return func(e *Emitter) { e.environment = env }
}

// WithLogger sets the logger for dropped and failed events.
func WithLogger(l observe.Logger) EmitterOption {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the time source for envelope timestamps.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithQueueSize bounds the number of writes in flight.
func WithQueueSize(n int) EmitterOption {
	return func(e *Emitter) {
		if n > 0 {
			e.sem = make(chan struct{}, n)
		}
	}
}

// WithRetry sets how many times a write is tried and the first backoff interval.
func WithRetry(maxTries uint, interval time.Duration) EmitterOption {
	return func(e *Emitter) {
		if maxTries > 0 {
			e.maxTries = maxTries
		}
		if interval > 0 {
			e.retryInterval = interval
		}
	}
}

// WithWriteTimeout bounds each write including its retries.
func WithWriteTimeout(d time.Duration) EmitterOption {
	return func(e *Emitter) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

// NewEmitter creates an Emitter writing to sink.
func NewEmitter(sink Sink, opts ...EmitterOption) (*Emitter, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	e := &Emitter{
		sink:          sink,
		logger:        observe.NoopLogger(),
		now:           time.Now,
		sem:           make(chan struct{}, DefaultQueueSize),
		maxTries:      DefaultMaxTries,
		retryInterval: DefaultRetryInterval,
		writeTimeout:  DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emit wraps event in an envelope and writes it in the background.
// The request URL is read from ctx before Emit returns; cancelling ctx
// afterwards does not cancel the write.
func (e *Emitter) Emit(ctx context.Context, event map[string]any) {
	env := NewEnvelope(ctx, e.environment, e.now(), event)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.drop(ctx, env, "emitter closed")
		return
	}
	select {
	case e.sem <- struct{}{}:
	default:
		e.drop(ctx, env, "queue full")
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() { <-e.sem }()
		e.write(env)
	}()
}

func (e *Emitter) write(env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, e.sink.Write(ctx, env)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(e.maxTries))
	if err != nil {
		e.failed.Add(1)
		e.logger.Error(ctx, "event write failed",
			observe.Field{Key: "id", Value: env.ID},
			observe.Field{Key: "method", Value: env.Method()},
			observe.Field{Key: "error", Value: err},
		)
	}
}

func (e *Emitter) drop(ctx context.Context, env Envelope, reason string) {
	e.dropped.Add(1)
	e.logger.Warn(ctx, "event dropped",
		observe.Field{Key: "id", Value: env.ID},
		observe.Field{Key: "method", Value: env.Method()},
		observe.Field{Key: "reason", Value: reason},
	)
}

// Dropped returns how many events were discarded without being written.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Failed returns how many events could not be written after retries.
func (e *Emitter) Failed() uint64 {
	return e.failed.Load()
}

// Flush waits for in-flight writes or for ctx to end.
func (e *Emitter) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for in-flight writes.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEmitterClosed
	}
	e.closed = true
	e.mu.Unlock()
	return e.Flush(ctx)
}
