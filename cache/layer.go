package cache

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Layer stores typed values under descriptor-derived keys and cascades
// invalidation through the dependency table.
//
// Contract:
// - Concurrency: safe for concurrent use. The dependency table is read,
// modified and rewritten without locking; concurrent writers may lose
// each other's registrations.
// - Errors: Store and codec failures are returned wrapped with the
// operation name.
// - Cascade: invalidation follows the dependency table exactly one hop.
type Layer struct {
	store Store
	keys  KeyBuilder
	codec Codec
	now   func() time.Time
}

// LayerOption configures a Layer.
type LayerOption func(*Layer)

// WithEnvironment namespaces every key under env.
func WithEnvironment(env string) LayerOption {
	return func(l *Layer) {
		l.keys = NewKeyBuilder(env)
	}
}

// WithCodec replaces the default MessagePack codec.
func WithCodec(c Codec) LayerOption {
	return func(l *Layer) {
		if c != nil {
			l.codec = c
		}
	}
}

// WithClock sets the time source used to compute expiries.
func WithClock(now func() time.Time) LayerOption {
	return func(l *Layer) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLayer creates a Layer on top of store.
func NewLayer(store Store, opts ...LayerOption) (*Layer, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	l := &Layer{
		store: store,
		keys:  NewKeyBuilder(""),
		codec: MsgpackCodec{},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Environment returns the key namespace.
func (l *Layer) Environment() string {
	return l.keys.Environment()
}

// Store returns the underlying store.
func (l *Layer) Store() Store {
	return l.store
}

// FullKey returns the storage key for d and modifier.
func (l *Layer) FullKey(d *Descriptor, modifier string) string {
	return l.keys.FullKey(d, modifier)
}

// Put stores value under d and modifier.
//
// The stored entry expires after d.Expiry. When modifier is empty the entry
// is the canonical instance of d: it is registered as a dependent of each of
// d's dependencies, and its expiry is tightened so it never outlives any of
// them. Whatever depends on the written key is evicted before the value is
// stored.
func (l *Layer) Put(ctx context.Context, d *Descriptor, value any, modifier string) error {
	if d == nil {
		return ErrNilDescriptor
	}
	fullKey := l.keys.FullKey(d, modifier)
	if err := ValidateKey(fullKey); err != nil {
		return err
	}

	data, err := l.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", d, err)
	}

	now := l.now()
	var expiresAt time.Time
	if d.Expiry > 0 {
		expiresAt = now.Add(d.Expiry)
	}

	if modifier == "" {
		table, err := l.loadTable(ctx)
		if err != nil {
			return fmt.Errorf("cache: put %s: %w", d, err)
		}

		changed := false
		for _, dep := range d.DependsOn {
			if table.Add(l.keys.FullKey(dep, ""), fullKey) {
				changed = true
			}
			if dep.Expiry > 0 {
				depExpiresAt := now.Add(dep.Expiry)
				if expiresAt.IsZero() || depExpiresAt.Before(expiresAt) {
					expiresAt = depExpiresAt
				}
			}
		}
		if changed {
			if err := l.saveTable(ctx, table); err != nil {
				return fmt.Errorf("cache: put %s: %w", d, err)
			}
		}

		if err := l.deleteAll(ctx, table.Dependents(fullKey)); err != nil {
			return fmt.Errorf("cache: put %s: %w", d, err)
		}
	}

	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(now)
	}
	if err := l.store.Set(ctx, fullKey, data, ttl); err != nil {
		return fmt.Errorf("cache: put %s: %w", d, err)
	}
	return nil
}

// GetInto decodes the value stored under d and modifier into out.
// Returns false when nothing is stored.
func (l *Layer) GetInto(ctx context.Context, d *Descriptor, modifier string, out any) (bool, error) {
	if d == nil {
		return false, ErrNilDescriptor
	}
	data, ok, err := l.store.Get(ctx, l.keys.FullKey(d, modifier))
	if err != nil {
		return false, fmt.Errorf("cache: get %s: %w", d, err)
	}
	if !ok {
		return false, nil
	}
	if err := l.codec.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("cache: get %s: %w", d, err)
	}
	return true, nil
}

// Get returns the value of type T stored under d and modifier.
func Get[T any](ctx context.Context, l *Layer, d *Descriptor, modifier string) (T, bool, error) {
	var v T
	ok, err := l.GetInto(ctx, d, modifier, &v)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

// Evict removes the value stored under d and modifier together with every
// key the dependency table lists as depending on it.
func (l *Layer) Evict(ctx context.Context, d *Descriptor, modifier string) error {
	if d == nil {
		return ErrNilDescriptor
	}
	fullKey := l.keys.FullKey(d, modifier)
	if err := l.store.Delete(ctx, fullKey); err != nil {
		return fmt.Errorf("cache: evict %s: %w", d, err)
	}

	table, err := l.loadTable(ctx)
	if err != nil {
		return fmt.Errorf("cache: evict %s: %w", d, err)
	}
	if err := l.deleteAll(ctx, table.Dependents(fullKey)); err != nil {
		return fmt.Errorf("cache: evict %s: %w", d, err)
	}
	return nil
}

// Dependents returns the full keys currently registered as depending on the
// canonical instance of d.
func (l *Layer) Dependents(ctx context.Context, d *Descriptor) ([]string, error) {
	table, err := l.loadTable(ctx)
	if err != nil {
		return nil, err
	}
	deps := table.Dependents(l.keys.FullKey(d, ""))
	out := make([]string, len(deps))
	copy(out, deps)
	return out, nil
}

// FlushAll clears the entire store, dependency table included.
func (l *Layer) FlushAll(ctx context.Context) error {
	if err := l.store.FlushAll(ctx); err != nil {
		return fmt.Errorf("cache: flush: %w", err)
	}
	return nil
}

// Stat is a single raw counter reported by a store node.
type Stat struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NodeStats holds the counters of one store node.
type NodeStats struct {
	Node  string `json:"node"`
	Stats []Stat `json:"stats"`
}

// Stats returns the store's counters per node, sorted by node then name.
func (l *Layer) Stats(ctx context.Context) ([]NodeStats, error) {
	raw, err := l.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache: stats: %w", err)
	}

	out := make([]NodeStats, 0, len(raw))
	for node, counters := range raw {
		ns := NodeStats{Node: node, Stats: make([]Stat, 0, len(counters))}
		for name, value := range counters {
			ns.Stats = append(ns.Stats, Stat{Name: name, Value: value})
		}
		sort.Slice(ns.Stats, func(i, j int) bool { return ns.Stats[i].Name < ns.Stats[j].Name })
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node < out[j].Node })
	return out, nil
}

func (l *Layer) loadTable(ctx context.Context) (DependencyTable, error) {
	table := make(DependencyTable)
	data, ok, err := l.store.Get(ctx, l.keys.FullKey(DependencyTableDescriptor, ""))
	if err != nil {
		return nil, fmt.Errorf("load dependency table: %w", err)
	}
	if !ok {
		return table, nil
	}
	if err := l.codec.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("load dependency table: %w", err)
	}
	if table == nil {
		table = make(DependencyTable)
	}
	return table, nil
}

func (l *Layer) saveTable(ctx context.Context, table DependencyTable) error {
	data, err := l.codec.Marshal(table)
	if err != nil {
		return fmt.Errorf("save dependency table: %w", err)
	}
	if err := l.store.Set(ctx, l.keys.FullKey(DependencyTableDescriptor, ""), data, 0); err != nil {
		return fmt.Errorf("save dependency table: %w", err)
	}
	return nil
}

func (l *Layer) deleteAll(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := l.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("evict dependent %s: %w", key, err)
		}
	}
	return nil
}
