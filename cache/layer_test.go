package cache

import (
	"context"
	"testing"
	"time"
)

type product struct {
	ID    int
	Name  string
	Price float64
}

func newTestLayer(t *testing.T) (*Layer, *Registry, *testClock, *MemoryStore) {
	t.Helper()
	reg, err := NewRegistry(catalogGroups())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	clock := newTestClock()
	store := NewMemoryStoreWithClock(clock.Now)
	layer, err := NewLayer(store, WithEnvironment("test"), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewLayer() error = %v", err)
	}
	return layer, reg, clock, store
}

func TestLayer_PutGet(t *testing.T) {
	layer, reg, _, _ := newTestLayer(t)
	ctx := context.Background()
	d := reg.MustKey("Catalog", "ProductTable")

	want := []product{{ID: 1, Name: "Lamp", Price: 19.5}, {ID: 2, Name: "Desk", Price: 120}}
	if err := layer.Put(ctx, d, want, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := Get[[]product](ctx, layer, d, "")
	if err != nil || !ok {
		t.Fatalf("Get() = (%v, %v)", ok, err)
	}
	if len(got) != 2 || got[1] != want[1] {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	if _, ok, _ := Get[[]product](ctx, layer, d, "other"); ok {
		t.Error("modified key should not see canonical value")
	}
}

func TestLayer_ProductListInvalidatedByProductTable(t *testing.T) {
	layer, reg, _, _ := newTestLayer(t)
	ctx := context.Background()
	table := reg.MustKey("Catalog", "ProductTable")
	list := reg.MustKey("Catalog", "ProductList")

	if err := layer.Put(ctx, table, "v1", ""); err != nil {
		t.Fatalf("Put(table v1) error = %v", err)
	}
	if err := layer.Put(ctx, list, "computed-from-v1", ""); err != nil {
		t.Fatalf("Put(list) error = %v", err)
	}
	if _, ok, _ := Get[string](ctx, layer, list, ""); !ok {
		t.Fatal("ProductList missing right after Put")
	}

	if err := layer.Put(ctx, table, "v2", ""); err != nil {
		t.Fatalf("Put(table v2) error = %v", err)
	}
	if _, ok, _ := Get[string](ctx, layer, list, ""); ok {
		t.Error("ProductList still cached after ProductTable was rewritten")
	}
	if v, _, _ := Get[string](ctx, layer, table, ""); v != "v2" {
		t.Errorf("ProductTable = %q, want v2", v)
	}
}

func TestLayer_DependencyTableRegistration(t *testing.T) {
	layer, reg, _, _ := newTestLayer(t)
	ctx := context.Background()
	table := reg.MustKey("Catalog", "ProductTable")
	list := reg.MustKey("Catalog", "ProductList")

	if err := layer.Put(ctx, list, "x", ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	deps, err := layer.Dependents(ctx, table)
	if err != nil {
		t.Fatalf("Dependents() error = %v", err)
	}
	if want := []string{layer.FullKey(list, "")}; !equalStrings(deps, want) {
		t.Errorf("Dependents(ProductTable) = %v, want %v", deps, want)
	}

	// Writing again does not duplicate the registration.
	_ = layer.Put(ctx, list, "y", "")
	deps, _ = layer.Dependents(ctx, table)
	if len(deps) != 1 {
		t.Errorf("len(Dependents) = %d, want 1", len(deps))
	}
}

func TestLayer_ModifiedPutSkipsDependencies(t *testing.T) {
	layer, reg, clock, _ := newTestLayer(t)
	ctx := context.Background()
	table := reg.MustKey("Catalog", "ProductTable")
	list := reg.MustKey("Catalog", "ProductList")

	if err := layer.Put(ctx, list, "page-2", "page=2"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	deps, _ := layer.Dependents(ctx, table)
	if len(deps) != 0 {
		t.Errorf("modified put registered dependents: %v", deps)
	}

	// Without tightening, the 30 minute own expiry applies, beyond PriceTable's 5.
	clock.Advance(10 * time.Minute)
	if _, ok, _ := Get[string](ctx, layer, list, "page=2"); !ok {
		t.Error("modified entry expired early; expiry should not be tightened")
	}
}

func TestLayer_ExpiryTightenedByDependency(t *testing.T) {
	layer, reg, clock, _ := newTestLayer(t)
	ctx := context.Background()
	// ProductList expires in 30 minutes but depends on Pricing/PriceTable (5 minutes).
	list := reg.MustKey("Catalog", "ProductList")

	if err := layer.Put(ctx, list, "x", ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	clock.Advance(4*time.Minute + 59*time.Second)
	if _, ok, _ := Get[string](ctx, layer, list, ""); !ok {
		t.Fatal("entry expired before the tightened expiry")
	}
	clock.Advance(time.Second)
	if _, ok, _ := Get[string](ctx, layer, list, ""); ok {
		t.Error("entry outlived the 5 minute expiry of its dependency")
	}
}

func TestLayer_ExpiryTightenedFromNone(t *testing.T) {
	reg, err := NewRegistry([]GroupConfig{{
		Name: "G",
		Keys: []KeyConfig{
			{Name: "Source", ExpiryMinutes: intPtr(2)},
			{Name: "Derived", DependsOn: []DependencyRef{{Group: "G", Key: "Source"}}},
		},
	}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	clock := newTestClock()
	layer, _ := NewLayer(NewMemoryStoreWithClock(clock.Now), WithClock(clock.Now))
	ctx := context.Background()

	derived := reg.MustKey("G", "Derived")
	_ = layer.Put(ctx, derived, 1, "")
	clock.Advance(2 * time.Minute)
	if _, ok, _ := Get[int](ctx, layer, derived, ""); ok {
		t.Error("key without own expiry outlived its dependency")
	}
}

func TestLayer_EvictionIsOneHop(t *testing.T) {
	reg, err := NewRegistry([]GroupConfig{{
		Name: "Chain",
		Keys: []KeyConfig{
			{Name: "A"},
			{Name: "B", DependsOn: []DependencyRef{{Group: "Chain", Key: "A"}}},
			{Name: "C", DependsOn: []DependencyRef{{Group: "Chain", Key: "B"}}},
		},
	}})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	layer, _ := NewLayer(NewMemoryStore())
	ctx := context.Background()
	a, b, c := reg.MustKey("Chain", "A"), reg.MustKey("Chain", "B"), reg.MustKey("Chain", "C")

	_ = layer.Put(ctx, a, "a1", "")
	_ = layer.Put(ctx, b, "b1", "")
	_ = layer.Put(ctx, c, "c1", "")

	if err := layer.Put(ctx, a, "a2", ""); err != nil {
		t.Fatalf("Put(A) error = %v", err)
	}
	if _, ok, _ := Get[string](ctx, layer, b, ""); ok {
		t.Error("B should be evicted by a write to A")
	}
	if _, ok, _ := Get[string](ctx, layer, c, ""); !ok {
		t.Error("C should survive a write to A (cascade is one hop)")
	}
}

func TestLayer_Evict(t *testing.T) {
	layer, reg, _, _ := newTestLayer(t)
	ctx := context.Background()
	table := reg.MustKey("Catalog", "ProductTable")
	list := reg.MustKey("Catalog", "ProductList")
	home := reg.MustKey("Pages", "Home")

	_ = layer.Put(ctx, table, "v1", "")
	_ = layer.Put(ctx, list, "l1", "")
	_ = layer.Put(ctx, home, "h1", "")

	if err := layer.Evict(ctx, table, ""); err != nil {
		t.Fatalf("Evict() error = %v", err)
	}
	for _, d := range []*Descriptor{table, list, home} {
		if _, ok, _ := Get[string](ctx, layer, d, ""); ok {
			t.Errorf("%s still cached after Evict(ProductTable)", d)
		}
	}

	if err := layer.Evict(ctx, nil, ""); err != ErrNilDescriptor {
		t.Errorf("Evict(nil) = %v, want %v", err, ErrNilDescriptor)
	}
}

func TestLayer_FlushAllAndStats(t *testing.T) {
	layer, reg, _, _ := newTestLayer(t)
	ctx := context.Background()
	list := reg.MustKey("Catalog", "ProductList")

	_ = layer.Put(ctx, list, "x", "")
	if err := layer.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll() error = %v", err)
	}
	if _, ok, _ := Get[string](ctx, layer, list, ""); ok {
		t.Error("entry survived FlushAll")
	}
	deps, _ := layer.Dependents(ctx, reg.MustKey("Catalog", "ProductTable"))
	if len(deps) != 0 {
		t.Errorf("dependency table survived FlushAll: %v", deps)
	}

	stats, err := layer.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(stats) != 1 || stats[0].Node != MemoryNodeID {
		t.Fatalf("Stats() = %+v, want single %s node", stats, MemoryNodeID)
	}
	for i := 1; i < len(stats[0].Stats); i++ {
		if stats[0].Stats[i-1].Name > stats[0].Stats[i].Name {
			t.Errorf("stats not sorted: %q before %q", stats[0].Stats[i-1].Name, stats[0].Stats[i].Name)
		}
	}
}

func TestLayer_PutNilDescriptor(t *testing.T) {
	layer, _, _, _ := newTestLayer(t)
	if err := layer.Put(context.Background(), nil, 1, ""); err != ErrNilDescriptor {
		t.Errorf("Put(nil) = %v, want %v", err, ErrNilDescriptor)
	}
}
