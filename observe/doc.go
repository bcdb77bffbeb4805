// Package observe provides observability primitives for guarded calls.
//
// It offers a structured Logger (JSON lines or zap), a Tracer that opens one
// span per breaker attempt, and Metrics that count attempts, failures and
// rejections. NewObserver wires OpenTelemetry providers and exporters from a
// Config; the resilience package consumes the resulting primitives.
package observe
