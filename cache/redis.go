package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis client used by RedisStore.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `yaml:"addr"`

	// Password is the AUTH password. Empty disables AUTH.
	Password string `yaml:"password"`

	// DB selects the logical database.
	DB int `yaml:"db"`

	// PoolSize is the maximum number of socket connections.
	// Default: 10
	PoolSize int `yaml:"pool_size"`

	// DialTimeout bounds connection establishment.
	// Default: 5 seconds
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// KeyPrefix namespaces every key written by the store.
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisStore is a Store backed by Redis. It is the shared store used when
// several processes must observe the same cache entries and tool epoch.
//
// It takes a single-node client: GetMany reads the classifier slots and a
// document key in one MGET, which a Redis Cluster rejects with CROSSSLOT.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient creates a client from cfg and verifies it with PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
		// Retries are the caller's decision, never the store's.
		MaxRetries: -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: connect to redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisStore wraps an existing client. keyPrefix may be empty.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Get retrieves a value. Returns (nil, false, nil) on miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get %q: %w", key, err)
	}
	return val, true, nil
}

// GetMany issues a single MGET for keys.
func (s *RedisStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	found := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return found, nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}

	vals, err := s.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: redis mget: %w", err)
	}

	for i, v := range vals {
		switch val := v.(type) {
		case nil:
			// missing or expired
		case string:
			found[keys[i]] = []byte(val)
		case []byte:
			found[keys[i]] = val
		default:
			return nil, fmt.Errorf("cache: redis mget %q: unexpected reply type %T", keys[i], v)
		}
	}
	return found, nil
}

// Set stores value with SET ... EX, or without expiry for NoExpiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set %q: %w", key, err)
	}
	return nil
}

// Touch resets the expiry of key. EXPIRE on a missing key is a no-op.
func (s *RedisStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}

	var err error
	if ttl == NoExpiry {
		err = s.client.Persist(ctx, s.key(key)).Err()
	} else {
		err = s.client.Expire(ctx, s.key(key), ttl).Err()
	}
	if err != nil {
		return fmt.Errorf("cache: redis touch %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Idempotent - no error on miss.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("cache: redis del %q: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var (
	_ Store  = (*RedisStore)(nil)
	_ Pinger = (*RedisStore)(nil)
)
