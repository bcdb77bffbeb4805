// Package health reports whether the breaker's dependencies are usable.
//
// Checkers cover the cache store (StoreChecker), the share of Open circuits
// (CircuitChecker) and event log losses (EventLogChecker). An Aggregator
// runs them together and RegisterHandlers exposes the result:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewStoreChecker(store))
//	agg.Register(health.NewCircuitChecker(registry, health.CircuitCheckerConfig{}))
//	health.RegisterHandlers(mux, agg)
//
// /healthz is a liveness probe, /readyz fails only when a check is
// unhealthy, and /health returns every check as JSON.
package health
