package eventlog

import (
	"context"
	"errors"

	"github.com/jonwraymond/breakercache/observe"
	"golang.org/x/sync/errgroup"
)

// Sink persists envelopes.
//
// Contract:
// - Concurrency: Write may be called from many goroutines at once.
// - Errors: a returned error is retried by the Emitter unless it is
// wrapped with backoff.Permanent.
type Sink interface {
	Write(ctx context.Context, env Envelope) error
}

// RecentReader returns the newest events logged for a method key.
type RecentReader interface {
	Recent(ctx context.Context, methodKey, environment string, n int) ([]Envelope, error)
}

// DefaultRecent is the number of events Recent returns when n <= 0.
const DefaultRecent = 20

// LoggerSink writes envelopes through a structured logger.
type LoggerSink struct {
	logger observe.Logger
}

// NewLoggerSink creates a sink that logs each envelope at Info.
func NewLoggerSink(logger observe.Logger) *LoggerSink {
	if logger == nil {
		logger = observe.NoopLogger()
	}
	return &LoggerSink{logger: logger}
}

// Write implements Sink.
func (s *LoggerSink) Write(ctx context.Context, env Envelope) error {
	fields := []observe.Field{
		{Key: "id", Value: env.ID},
		{Key: "environment", Value: env.Environment},
		{Key: "timestamp", Value: env.TimeStamp},
		{Key: "data", Value: env.Data},
	}
	if env.URL != "" {
		fields = append(fields, observe.Field{Key: "url", Value: env.URL})
	}
	s.logger.Info(ctx, "circuit event", fields...)
	return nil
}

// MultiSink writes each envelope to every sink concurrently.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks. Nil sinks are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write implements Sink. It waits for every sink and returns their errors joined.
func (m *MultiSink) Write(ctx context.Context, env Envelope) error {
	errs := make([]error, len(m.sinks))
	var g errgroup.Group
	for i, s := range m.sinks {
		g.Go(func() error {
			errs[i] = s.Write(ctx, env)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Recent implements RecentReader using the first sink that can answer.
func (m *MultiSink) Recent(ctx context.Context, methodKey, environment string, n int) ([]Envelope, error) {
	for _, s := range m.sinks {
		if r, ok := s.(RecentReader); ok {
			return r.Recent(ctx, methodKey, environment, n)
		}
	}
	return nil, nil
}

var (
	_ Sink         = (*LoggerSink)(nil)
	_ Sink         = (*MultiSink)(nil)
	_ RecentReader = (*MultiSink)(nil)
)
