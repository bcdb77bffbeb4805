// Package cache provides a dependency-aware cache layer over a shared
// key-value store.
//
// Keys are declared up front in a Registry as named groups of descriptors.
// Each descriptor may carry an expiry and a set of dependencies on other keys
// or whole groups. The Layer derives a full key from the environment, the
// descriptor and an optional modifier (hashed with xxhash), and keeps a
// dependency table inside the store so that rewriting a key evicts every key
// that was built from it.
//
// Two Store implementations are provided: MemoryStore for a single process
// and tests, and RedisStore for a shared Redis deployment.
package cache
