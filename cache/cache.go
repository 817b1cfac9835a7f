package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// NoExpiry stores a value without an expiry.
const NoExpiry time.Duration = 0

// Sentinel errors for cache operations.
var (
	ErrNilStore         = errors.New("cache: store is nil")
	ErrInvalidKey       = errors.New("cache: key is invalid")
	ErrKeyTooLong       = errors.New("cache: key exceeds max length")
	ErrInvalidTTL       = errors.New("cache: ttl must not be negative")
	ErrStoreUnavailable = errors.New("cache: store unavailable")
	ErrStoreTimeout     = errors.New("cache: store operation timed out")
)

// Store is a key-value store with per-key expiry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Misses: a missing key and an expired key are indistinguishable; neither is an error.
// - Errors: transport failures are returned unchanged and never retried.
type Store interface {
	// Get retrieves a value. Returns (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetMany retrieves several values in one round trip. The result holds
	// only the keys that are present.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set stores a value, overwriting any previous one. ttl == NoExpiry
	// stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Touch resets the expiry of an existing key. Missing keys are ignored.
	Touch(ctx context.Context, key string, ttl time.Duration) error

	// Delete removes a value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ValidateKey checks if a key is valid for caching.
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

func validateTTL(ttl time.Duration) error {
	if ttl < 0 {
		return ErrInvalidTTL
	}
	return nil
}
