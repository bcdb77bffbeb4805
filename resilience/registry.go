package resilience

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/breakercache/cache"
	"github.com/jonwraymond/breakercache/observe"
)

// ModelExpiry is how long a circuit model and the tracking set stay cached
// after their last write.
const ModelExpiry = 120 * time.Minute

var (
	circuitDescriptor  = &cache.Descriptor{Group: cache.CircuitGroup, Name: "circuit", Expiry: ModelExpiry}
	trackingDescriptor = &cache.Descriptor{Group: cache.CircuitGroup, Name: "circuits", Expiry: ModelExpiry}
)

// EventSink receives attempt events.
//
// Contract:
// - Emit must not block the caller and must not panic.
// - Ownership: the sink owns event after Emit returns.
type EventSink interface {
	Emit(ctx context.Context, event map[string]any)
}

// Registry guards calls with circuits whose state lives in a cache Layer.
//
// Contract:
// - Concurrency: safe for concurrent use. Model updates are
// read-modify-write against the store without locking; concurrent attempts
// on one method key may lose each other's updates.
// - Errors: store failures are returned wrapped; invocation errors are
// returned unchanged.
type Registry struct {
	layer   *cache.Layer
	defs    Definitions
	now     func() time.Time
	logger  observe.Logger
	tracer  observe.Tracer
	metrics observe.Metrics
	sink    EventSink

	discardTimedOut bool

	mu          sync.RWMutex
	maintenance bool
	prefixes    []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used for timestamps, timeouts and cooldowns.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the diagnostics logger.
// Default: observe.NoopLogger()
func WithLogger(l observe.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer sets the per-attempt tracer.
func WithTracer(t observe.Tracer) Option {
	return func(r *Registry) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithMetrics sets the per-attempt metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithEventSink sets where attempt events are emitted.
func WithEventSink(s EventSink) Option {
	return func(r *Registry) {
		r.sink = s
	}
}

// WithMaintenance starts the registry with the kill-switch set. With no
// prefixes it applies to every method key.
func WithMaintenance(enabled bool, prefixes ...string) Option {
	return func(r *Registry) {
		r.maintenance = enabled
		r.prefixes = slices.Clone(prefixes)
	}
}

// WithDiscardTimedOutResults makes Timeout-classified calls return the zero
// value instead of the completed result.
func WithDiscardTimedOutResults() Option {
	return func(r *Registry) {
		r.discardTimedOut = true
	}
}

// NewRegistry creates a Registry persisting through layer.
func NewRegistry(layer *cache.Layer, defs Definitions, opts ...Option) (*Registry, error) {
	if layer == nil {
		return nil, ErrNilLayer
	}
	r := &Registry{
		layer:   layer,
		defs:    defs,
		now:     time.Now,
		logger:  observe.NoopLogger(),
		tracer:  observe.NoopTracer(),
		metrics: observe.NoopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetMaintenance toggles the kill-switch, keeping its prefixes.
func (r *Registry) SetMaintenance(enabled bool) {
	r.mu.Lock()
	r.maintenance = enabled
	r.mu.Unlock()
}

// Maintenance reports the kill-switch and the prefixes it is scoped to.
func (r *Registry) Maintenance() (bool, []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maintenance, slices.Clone(r.prefixes)
}

// InMaintenance reports whether calls through methodKey are skipped.
func (r *Registry) InMaintenance(methodKey string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.maintenance {
		return false
	}
	if len(r.prefixes) == 0 {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(methodKey, p) {
			return true
		}
	}
	return false
}

// Definitions returns the configured circuit definitions.
func (r *Registry) Definitions() Definitions {
	return r.defs
}

func (r *Registry) load(ctx context.Context, methodKey string) (CircuitModel, bool, error) {
	m, ok, err := cache.Get[CircuitModel](ctx, r.layer, circuitDescriptor, methodKey)
	if err != nil {
		return CircuitModel{}, false, fmt.Errorf("resilience: load circuit %s: %w", methodKey, err)
	}
	return m, ok, nil
}

func (r *Registry) loadOrCreate(ctx context.Context, methodKey string) (CircuitModel, error) {
	m, ok, err := r.load(ctx, methodKey)
	if err != nil || ok {
		return m, err
	}
	def, err := r.defs.Lookup(methodKey)
	if err != nil {
		return CircuitModel{}, err
	}
	m = NewCircuitModel(methodKey, def)
	if err := r.save(ctx, &m); err != nil {
		return CircuitModel{}, err
	}
	return m, nil
}

// freshest reloads the model written most recently by any caller, falling
// back to m when the stored copy has expired or been cleared.
func (r *Registry) freshest(ctx context.Context, m CircuitModel) (CircuitModel, error) {
	fresh, ok, err := r.load(ctx, m.MethodKey)
	if err != nil {
		return m, err
	}
	if !ok {
		return m, nil
	}
	return fresh, nil
}

func (r *Registry) save(ctx context.Context, m *CircuitModel) error {
	if err := r.layer.Put(ctx, circuitDescriptor, m, m.MethodKey); err != nil {
		return fmt.Errorf("resilience: save circuit %s: %w", m.MethodKey, err)
	}
	return r.track(ctx, m.MethodKey)
}

// TrackedKeys returns every method key in the tracking set, sorted.
func (r *Registry) TrackedKeys(ctx context.Context) ([]string, error) {
	keys, _, err := cache.Get[[]string](ctx, r.layer, trackingDescriptor, "")
	if err != nil {
		return nil, fmt.Errorf("resilience: load tracking set: %w", err)
	}
	return keys, nil
}

// track adds methodKey to the tracking set. The set is rewritten on every
// call so its expiry keeps pace with the models it lists.
func (r *Registry) track(ctx context.Context, methodKey string) error {
	keys, err := r.TrackedKeys(ctx)
	if err != nil {
		return err
	}
	if i, found := slices.BinarySearch(keys, methodKey); !found {
		keys = slices.Insert(keys, i, methodKey)
	}
	if err := r.layer.Put(ctx, trackingDescriptor, keys, ""); err != nil {
		return fmt.Errorf("resilience: save tracking set: %w", err)
	}
	return nil
}

func (r *Registry) untrack(ctx context.Context, methodKey string) error {
	keys, err := r.TrackedKeys(ctx)
	if err != nil {
		return err
	}
	i, found := slices.BinarySearch(keys, methodKey)
	if !found {
		return nil
	}
	keys = slices.Delete(keys, i, i+1)
	if err := r.layer.Put(ctx, trackingDescriptor, keys, ""); err != nil {
		return fmt.Errorf("resilience: save tracking set: %w", err)
	}
	return nil
}

// logTransition reports state changes between before and after.
func (r *Registry) logTransition(ctx context.Context, before State, after *CircuitModel) {
	state := after.BreakStatus()
	if state == before {
		return
	}
	logger := r.logger.WithCircuit(after.CallMeta())
	fields := []observe.Field{
		{Key: "from", Value: before.String()},
		{Key: "to", Value: state.String()},
		{Key: "errorCount", Value: after.ErrorCount},
		{Key: "limitBreak", Value: after.LimitBreak},
	}
	if state == StateOpen {
		logger.Warn(ctx, "circuit opened", fields...)
	} else {
		logger.Info(ctx, "circuit state changed", fields...)
	}
}
