package health_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/health"
	"github.com/jonwraymond/breakercache/resilience"
)

func ExampleCircuitChecker() {
	layer, _ := cache.NewLayer(cache.NewMemoryStore())
	defs, _ := resilience.NewDefinitions([]resilience.CircuitDefinition{
		{Name: resilience.DefaultCircuitName, TimeoutSeconds: 5, LimitBreak: 3, CooldownSeconds: 60},
	})
	reg, _ := resilience.NewRegistry(layer, defs)
	ctx := context.Background()

	_, _ = reg.CloseCircuit(ctx, "Shop.Orders.Place")
	_, _ = reg.CloseCircuit(ctx, "Shop.Crm.Lookup")
	_, _ = reg.CloseCircuit(ctx, "Shop.Stock.Reserve")
	_, _ = reg.OpenCircuit(ctx, "Shop.Orders.Place")

	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker(layer.Store()))
	agg.Register(health.NewCircuitChecker(reg, health.CircuitCheckerConfig{}))

	results := agg.CheckAll(ctx)
	fmt.Println(results["store"].Status)
	fmt.Println(results["circuits"].Status, results["circuits"].Message)
	fmt.Println(health.OverallStatus(results))
	// Output:
	// healthy
	// degraded 1 of 3 circuits open
	// degraded
}
