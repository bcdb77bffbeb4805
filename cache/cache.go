package cache

import (
	"context"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a full cache key.
const MaxKeyLength = 512

// Store is the key-value backend the Layer persists through.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get returns (nil, false, nil) on miss; errors are reserved for
// backend failures and are never swallowed.
// - TTL: Set with ttl <= 0 stores the value until it is deleted or flushed.
type Store interface {
	// Get retrieves a stored value. Returns (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a stored value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// FlushAll removes every value from the store.
	FlushAll(ctx context.Context) error

	// Stats returns raw counters per backend node, keyed by node id.
	Stats(ctx context.Context) (map[string]map[string]string, error)
}

// ValidateKey checks if a full key is valid for storage.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with whitespace control characters
	if strings.ContainsAny(key, "\n\r\t ") {
		return ErrInvalidKey
	}
	return nil
}
