// Package eventlog records circuit breaker attempt events.
//
// Events are wrapped in an Envelope that stamps the environment, the request
// URL carried by the context, a second-resolution timestamp and a unique id.
// An Emitter hands envelopes to a Sink on background goroutines so the
// guarded call never waits for logging; writes are retried with exponential
// backoff and dropped with a diagnostic when the emitter is saturated.
//
// Sinks:
//
//   - MongoSink stores one document per event and answers recent-event
//     queries for a method key.
//   - FileSink writes one JSON file per event under <root>/<collection>/.
//   - LoggerSink writes events through an observe.Logger.
//   - MultiSink writes to several sinks concurrently.
package eventlog
