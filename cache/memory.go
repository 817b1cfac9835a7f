package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It is meant for tests and
// single-process deployments; it is not shared between processes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

// Get retrieves a value from the store. Returns (nil, false, nil) on miss or expiry.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.entries[key]
	if !ok {
		s.mu.RUnlock()
		return nil, false, nil
	}
	if entry.expired(now) {
		s.mu.RUnlock()
		s.evict(key, entry, now)
		return nil, false, nil
	}
	value := cloneBytes(entry.value)
	s.mu.RUnlock()

	return value, true, nil
}

// GetMany retrieves every present, unexpired key.
func (s *MemoryStore) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	now := s.now()
	found := make(map[string][]byte, len(keys))

	s.mu.RLock()
	for _, key := range keys {
		entry, ok := s.entries[key]
		if !ok || entry.expired(now) {
			continue
		}
		found[key] = cloneBytes(entry.value)
	}
	s.mu.RUnlock()

	return found, nil
}

// Set stores a copy of value.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}

	entry := &memoryEntry{value: cloneBytes(value)}
	if ttl != NoExpiry {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	return nil
}

// Touch resets the expiry of key if it is present.
func (s *MemoryStore) Touch(_ context.Context, key string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(now) {
		return nil
	}
	if ttl == NoExpiry {
		entry.expiresAt = time.Time{}
	} else {
		entry.expiresAt = now.Add(ttl)
	}
	return nil
}

// Delete removes a value from the store. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// TTL reports the remaining lifetime of key. ok is false when the key is
// absent; a zero duration with ok set means the key never expires.
func (s *MemoryStore) TTL(key string) (time.Duration, bool) {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired(now) {
		return 0, false
	}
	if entry.expiresAt.IsZero() {
		return 0, true
	}
	return entry.expiresAt.Sub(now), true
}

// Len returns the number of stored entries, including expired ones that
// have not been evicted yet.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// evict drops key only if it still maps to the observed entry and that
// entry is still expired; a concurrent Touch may have extended it.
func (s *MemoryStore) evict(key string, observed *memoryEntry, now time.Time) {
	s.mu.Lock()
	if s.entries[key] == observed && observed.expired(now) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Pinger = (*MemoryStore)(nil)
)
