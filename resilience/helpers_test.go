package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/breakercache/cache"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu     sync.Mutex
	events []map[string]any
}

func (s *recordingSink) Emit(_ context.Context, event map[string]any) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *recordingSink) Events() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.events...)
}

// defaultDefs opens after three errors and cools down after a minute.
func defaultDefs(t *testing.T, extra ...CircuitDefinition) Definitions {
	t.Helper()
	defs, err := NewDefinitions(append([]CircuitDefinition{
		{Name: DefaultCircuitName, TimeoutSeconds: 1, LimitBreak: 3, CooldownSeconds: 60},
	}, extra...))
	if err != nil {
		t.Fatalf("NewDefinitions() error = %v", err)
	}
	return defs
}

func newTestRegistry(t *testing.T, defs Definitions, opts ...Option) (*Registry, *testClock) {
	t.Helper()
	clock := newTestClock()
	store := cache.NewMemoryStoreWithClock(clock.Now)
	layer, err := cache.NewLayer(store, cache.WithEnvironment("test"), cache.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLayer() error = %v", err)
	}
	reg, err := NewRegistry(layer, defs, append([]Option{WithClock(clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return reg, clock
}

var errBoom = errorString("boom")

type errorString string

func (e errorString) Error() string { return string(e) }

func succeed(context.Context) (string, error) { return "ok", nil }

func fail(context.Context) (string, error) { return "", errBoom }

func mustCircuit(t *testing.T, reg *Registry, key string) CircuitModel {
	t.Helper()
	m, err := reg.Circuit(context.Background(), key)
	if err != nil {
		t.Fatalf("Circuit(%q) error = %v", key, err)
	}
	return m
}
