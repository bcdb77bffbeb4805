package cache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStore built by NewRedisStoreFromConfig.
type RedisConfig struct {
	// Addrs lists the Redis endpoints. One address selects standalone mode,
	// several select cluster mode.
	Addrs []string

	// Password authenticates against the server (optional).
	Password string

	// DB selects the logical database in standalone mode.
	// Default: 0
	DB int

	// DialTimeout bounds connection establishment.
	// Default: 5 seconds
	DialTimeout time.Duration
}

// RedisStore is a Store backed by Redis, standalone or cluster.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromConfig creates a client from cfg and wraps it.
func NewRedisStoreFromConfig(cfg RedisConfig) (*RedisStore, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("cache: redis addrs are required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       cfg.Addrs,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	return &RedisStore{client: client}, nil
}

// Get retrieves a value. A redis.Nil reply is reported as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value. A ttl <= 0 stores it without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	// go-redis treats negative TTLs as KEEPTTL
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %q: %w", key, err)
	}
	return nil
}

// Delete removes a value. Idempotent.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: redis del %q: %w", key, err)
	}
	return nil
}

// FlushAll flushes every node (every master in cluster mode).
func (s *RedisStore) FlushAll(ctx context.Context) error {
	var err error
	if cluster, ok := s.client.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return node.FlushAll(ctx).Err()
		})
	} else {
		err = s.client.FlushAll(ctx).Err()
	}
	if err != nil {
		return fmt.Errorf("cache: redis flushall: %w", err)
	}
	return nil
}

// Stats returns the parsed INFO reply of every node, keyed by node address.
func (s *RedisStore) Stats(ctx context.Context) (map[string]map[string]string, error) {
	result := make(map[string]map[string]string)

	if cluster, ok := s.client.(*redis.ClusterClient); ok {
		var mu sync.Mutex
		err := cluster.ForEachShard(ctx, func(ctx context.Context, node *redis.Client) error {
			info, err := node.Info(ctx).Result()
			if err != nil {
				return err
			}
			mu.Lock()
			result[node.Options().Addr] = ParseInfo(info)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cache: redis info: %w", err)
		}
		return result, nil
	}

	info, err := s.client.Info(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: redis info: %w", err)
	}
	result[s.nodeID()] = ParseInfo(info)
	return result, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) nodeID() string {
	if single, ok := s.client.(*redis.Client); ok {
		return single.Options().Addr
	}
	return "redis"
}

// ParseInfo turns an INFO reply into a flat stat map. Section headers and
// blank lines are skipped.
func ParseInfo(info string) map[string]string {
	stats := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(info))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		stats[name] = value
	}
	return stats
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
