// Package resilience guards calls with circuit breakers whose state is shared
// through a cache.Layer.
//
// Each guarded callable is identified by a method key such as
// "Shop.Orders.Place". The first call through a key creates a CircuitModel
// from the matching CircuitDefinition, or from the "Default" definition when
// the key has none. Every attempt reloads the stored model, updates it and
// writes it back, so processes sharing a Redis-backed layer see one circuit.
//
// # States
//
// The state is derived from the model on every read:
//
//   - Closed: ErrorCount is zero.
//   - HalfOpen: ErrorCount is between zero and LimitBreak.
//   - Open: ErrorCount has reached LimitBreak.
//
// Exceptions and timeouts add one error. A success in Closed or HalfOpen
// removes one. An Open circuit rejects calls without invoking them until the
// cooldown has passed since the last failure; it then removes one error and
// lets a single probe through.
//
// # Usage
//
//	reg, err := resilience.NewRegistry(layer, defs,
//	    resilience.WithLogger(logger),
//	    resilience.WithEventSink(emitter),
//	)
//	order, err := resilience.Call(ctx, reg, "Shop.Orders.Place",
//	    func(ctx context.Context) (Order, error) {
//	        return client.Place(ctx, req)
//	    })
//
// A rejected call returns the zero value and a nil error. CallWithAttempt
// reports the Attempt alongside the result for callers that need to tell the
// two apart.
//
// # Maintenance
//
// SetMaintenance turns the breaker off, optionally only for method keys with
// given prefixes. Calls under maintenance are not made at all: they return
// the zero value and leave no trace in the cache.
//
// # Administration
//
// OpenCircuit, CloseCircuit, ClearCircuit and their bulk forms let operators
// override circuits. They are exposed over HTTP by package admin.
package resilience
