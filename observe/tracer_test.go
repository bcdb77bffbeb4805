package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestCallMetaFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want CallMeta
	}{
		{"Shop.Crm.Customers.Lookup", CallMeta{Key: "Shop.Crm.Customers.Lookup", Namespace: "Shop.Crm", Type: "Customers", Method: "Lookup"}},
		{"Customers.Lookup", CallMeta{Key: "Customers.Lookup", Type: "Customers", Method: "Lookup"}},
		{"Lookup", CallMeta{Key: "Lookup", Method: "Lookup"}},
	}
	for _, tt := range tests {
		if got := CallMetaFromKey(tt.key); got != tt.want {
			t.Errorf("CallMetaFromKey(%q) = %+v, want %+v", tt.key, got, tt.want)
		}
	}
}

func TestCallMeta_SpanName(t *testing.T) {
	meta := CallMetaFromKey("Shop.Orders.Place")
	if got := meta.SpanName(); got != "circuit.call.Shop.Orders.Place" {
		t.Errorf("SpanName() = %q", got)
	}
}

func recordSpan(t *testing.T, outcome CallOutcome) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tr := NewTracer(tp.Tracer("test"))

	_, span := tr.StartSpan(context.Background(), CallMetaFromKey("Shop.Orders.Place"))
	tr.EndSpan(span, outcome)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	return spans[0]
}

func attrMap(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	m := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestTracer_SpanAttributes(t *testing.T) {
	s := recordSpan(t, CallOutcome{State: "Closed", Reason: "None", Duration: 5 * time.Millisecond})

	if s.Name() != "circuit.call.Shop.Orders.Place" {
		t.Errorf("span name = %q", s.Name())
	}
	attrs := attrMap(s)
	want := map[string]string{
		"circuit.key":       "Shop.Orders.Place",
		"circuit.namespace": "Shop",
		"circuit.type":      "Orders",
		"circuit.method":    "Place",
		"circuit.state":     "Closed",
		"circuit.reason":    "None",
	}
	for k, v := range want {
		if got, ok := attrs[k]; !ok || got.AsString() != v {
			t.Errorf("%s = %v, want %q", k, got, v)
		}
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestTracer_ErrorRecording(t *testing.T) {
	s := recordSpan(t, CallOutcome{State: "HalfOpen", Reason: "Exception", Err: errors.New("boom")})

	if s.Status().Code != codes.Error || s.Status().Description != "boom" {
		t.Errorf("status = %+v, want Error/boom", s.Status())
	}
	if len(s.Events()) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestTracer_TimeoutIsError(t *testing.T) {
	s := recordSpan(t, CallOutcome{State: "Closed", Reason: "Timeout"})
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
}

func TestTracer_Rejected(t *testing.T) {
	s := recordSpan(t, CallOutcome{State: "Open", Reason: "OpenCircuit", Rejected: true})
	if v := attrMap(s)["circuit.rejected"]; !v.AsBool() {
		t.Error("circuit.rejected should be true")
	}
}

func TestNewTracer_NilFallsBackToNoop(t *testing.T) {
	tr := NewTracer(nil)
	_, span := tr.StartSpan(context.Background(), CallMeta{Key: "k"})
	tr.EndSpan(span, CallOutcome{})
}
