package observe

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta identifies a guarded callable for telemetry purposes.
type CallMeta struct {
	Key       string // Stable method key (Namespace.Type.Method)
	Namespace string // Namespace part of the key (may be empty)
	Type      string // Declaring type (may be empty)
	Method    string // Method name
}

// CallMetaFromKey splits a dotted method key into its parts. The last
// segment is the method, the one before it the declaring type, and whatever
// precedes them the namespace.
func CallMetaFromKey(key string) CallMeta {
	meta := CallMeta{Key: key, Method: key}
	parts := strings.Split(key, ".")
	switch n := len(parts); {
	case n >= 3:
		meta.Namespace = strings.Join(parts[:n-2], ".")
		meta.Type = parts[n-2]
		meta.Method = parts[n-1]
	case n == 2:
		meta.Type = parts[0]
		meta.Method = parts[1]
	}
	return meta
}

// SpanName returns the deterministic span name for this callable.
// Format: circuit.call.<key>
func (m CallMeta) SpanName() string {
	return "circuit.call." + m.Key
}

// CallOutcome describes how one guarded attempt ended.
type CallOutcome struct {
	State    string // breaker state the attempt was admitted under
	Reason   string // failure reason, "None" on success
	Rejected bool   // true when the callable was never invoked
	Duration time.Duration
	Err      error
}

// Tracer wraps OpenTelemetry tracing with circuit-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a guarded call.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome.
	EndSpan(span trace.Span, outcome CallOutcome)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NoopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("circuit.key", meta.Key),
		attribute.String("circuit.method", meta.Method),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("circuit.namespace", meta.Namespace))
	}
	if meta.Type != "" {
		attrs = append(attrs, attribute.String("circuit.type", meta.Type))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the outcome.
func (t *tracerImpl) EndSpan(span trace.Span, outcome CallOutcome) {
	span.SetAttributes(
		attribute.String("circuit.state", outcome.State),
		attribute.String("circuit.reason", outcome.Reason),
		attribute.Bool("circuit.rejected", outcome.Rejected),
	)
	if outcome.Err != nil {
		span.SetStatus(codes.Error, outcome.Err.Error())
		span.RecordError(outcome.Err)
	} else if outcome.Reason != "" && outcome.Reason != "None" {
		span.SetStatus(codes.Error, outcome.Reason)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer that records nothing.
func NoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ CallOutcome) {
	span.End()
}
