package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestValidateKey tests key validation rules.
func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"valid key", "prod:Catalog:ProductList:abc123", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"contains space", "key with space", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

// testClock is a manually advanced time source.
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

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (s failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, s.err }
func (s failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}
func (s failingStore) Delete(context.Context, string) error { return s.err }
func (s failingStore) FlushAll(context.Context) error        { return s.err }
func (s failingStore) Stats(context.Context) (map[string]map[string]string, error) {
	return nil, s.err
}

var _ Store = failingStore{}

func TestLayer_StoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection refused")
	layer, err := NewLayer(failingStore{err: boom})
	if err != nil {
		t.Fatalf("NewLayer() error = %v", err)
	}
	ctx := context.Background()
	d := &Descriptor{Group: "Catalog", Name: "ProductTable"}

	if err := layer.Put(ctx, d, "v", ""); !errors.Is(err, boom) {
		t.Errorf("Put() error = %v, want wrapping %v", err, boom)
	}
	if _, _, err := Get[string](ctx, layer, d, ""); !errors.Is(err, boom) {
		t.Errorf("Get() error = %v, want wrapping %v", err, boom)
	}
	if err := layer.Evict(ctx, d, ""); !errors.Is(err, boom) {
		t.Errorf("Evict() error = %v, want wrapping %v", err, boom)
	}
	if err := layer.FlushAll(ctx); !errors.Is(err, boom) {
		t.Errorf("FlushAll() error = %v, want wrapping %v", err, boom)
	}
	if _, err := layer.Stats(ctx); !errors.Is(err, boom) {
		t.Errorf("Stats() error = %v, want wrapping %v", err, boom)
	}
}

func TestNewLayer_NilStore(t *testing.T) {
	if _, err := NewLayer(nil); err != ErrNilStore {
		t.Errorf("NewLayer(nil) error = %v, want %v", err, ErrNilStore)
	}
}
