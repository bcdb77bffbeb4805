package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryNodeID is the node id MemoryStore reports its stats under.
const MemoryNodeID = "memory"

// MemoryStore is an in-process Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*storeEntry
	now     func() time.Time

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
	expired atomic.Uint64
}

type storeEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates an in-memory store that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: make(map[string]*storeEntry),
		now:     now,
	}
}

// Get retrieves a value from the store. Returns (nil, false, nil) on miss or expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		// Expired - clean up lazily
		s.mu.Lock()
		if current, still := s.entries[key]; still && current == entry {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.expired.Add(1)
		s.misses.Add(1)
		return nil, false, nil
	}

	s.hits.Add(1)
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set stores a value. A ttl <= 0 keeps the value until it is deleted or flushed.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	entry := &storeEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	s.sets.Add(1)
	return nil
}

// Delete removes a value from the store. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	s.deletes.Add(1)
	return nil
}

// FlushAll drops every entry.
func (s *MemoryStore) FlushAll(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*storeEntry)
	s.mu.Unlock()
	return nil
}

// Stats reports the store's counters under MemoryNodeID.
func (s *MemoryStore) Stats(_ context.Context) (map[string]map[string]string, error) {
	s.mu.RLock()
	items := len(s.entries)
	s.mu.RUnlock()

	return map[string]map[string]string{
		MemoryNodeID: {
			"curr_items": strconv.Itoa(items),
			"get_hits":   strconv.FormatUint(s.hits.Load(), 10),
			"get_misses": strconv.FormatUint(s.misses.Load(), 10),
			"cmd_set":    strconv.FormatUint(s.sets.Load(), 10),
			"cmd_delete": strconv.FormatUint(s.deletes.Load(), 10),
			"expired":    strconv.FormatUint(s.expired.Load(), 10),
		},
	}, nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
