package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-attempt breaker metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records one guarded attempt.
	RecordCall(ctx context.Context, meta CallMeta, outcome CallOutcome)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	totalCount    metric.Int64Counter
	failureCount  metric.Int64Counter
	rejectedCount metric.Int64Counter
	durationHist  metric.Float64Histogram
}

// NewMetrics creates the breaker instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"circuit.calls.total",
		metric.WithDescription("Total number of guarded call attempts"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	failureCount, err := meter.Int64Counter(
		"circuit.calls.failures",
		metric.WithDescription("Attempts classified as Timeout or Exception"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	rejectedCount, err := meter.Int64Counter(
		"circuit.calls.rejected",
		metric.WithDescription("Attempts rejected by an open circuit"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"circuit.calls.duration_ms",
		metric.WithDescription("Guarded call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:    totalCount,
		failureCount:  failureCount,
		rejectedCount: rejectedCount,
		durationHist:  durationHist,
	}, nil
}

// RecordCall records metrics for one attempt.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, outcome CallOutcome) {
	opt := metric.WithAttributes(
		attribute.String("circuit.key", meta.Key),
		attribute.String("circuit.reason", outcome.Reason),
	)

	m.totalCount.Add(ctx, 1, opt)

	switch {
	case outcome.Rejected:
		m.rejectedCount.Add(ctx, 1, opt)
	case outcome.Reason != "" && outcome.Reason != "None":
		m.failureCount.Add(ctx, 1, opt)
	}

	if !outcome.Rejected {
		m.durationHist.Record(ctx, float64(outcome.Duration.Microseconds())/1000.0, opt)
	}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordCall(context.Context, CallMeta, CallOutcome) {}
