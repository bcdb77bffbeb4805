package resilience

import (
	"context"
	"testing"

	"github.com/jonwraymond/breakercache/cache"
)

func benchRegistry(b *testing.B) *Registry {
	b.Helper()
	layer, err := cache.NewLayer(cache.NewMemoryStore())
	if err != nil {
		b.Fatal(err)
	}
	defs, err := NewDefinitions([]CircuitDefinition{
		{Name: DefaultCircuitName, TimeoutSeconds: 60, LimitBreak: 5, CooldownSeconds: 3600},
	})
	if err != nil {
		b.Fatal(err)
	}
	reg, err := NewRegistry(layer, defs)
	if err != nil {
		b.Fatal(err)
	}
	return reg
}

// BenchmarkCall_Closed measures the happy path through a stored circuit.
func BenchmarkCall_Closed(b *testing.B) {
	reg := benchRegistry(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Call(ctx, reg, "Bench.Service.Get", succeed)
	}
}

// BenchmarkCall_Open measures rejection overhead.
func BenchmarkCall_Open(b *testing.B) {
	reg := benchRegistry(b)
	ctx := context.Background()
	if _, err := reg.OpenCircuit(ctx, "Bench.Service.Get"); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Call(ctx, reg, "Bench.Service.Get", succeed)
	}
}

// BenchmarkCall_Maintenance measures the bypass path.
func BenchmarkCall_Maintenance(b *testing.B) {
	reg := benchRegistry(b)
	reg.SetMaintenance(true)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Call(ctx, reg, "Bench.Service.Get", succeed)
	}
}
