package doccache

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/artifactcache/cache"
	"github.com/jonwraymond/artifactcache/observe"
)

// Manager is the cache façade for document-derived artifacts.
//
// Contract:
// - Concurrency: safe for concurrent use; holds no mutable state.
// - Errors: misses are reported as (nil, false, nil); store errors are
//   wrapped and returned; stale or unreadable entries are deleted and
//   reported as misses.
type Manager struct {
	store    cache.Store
	entities EntityStore
	epoch    *Epoch

	codec          *Codec
	metadataPolicy cache.Policy
	suggestPolicy  cache.Policy
	inst           *observe.Instruments
}

// Option configures a Manager.
type Option func(*Manager)

// WithInstruments sets the telemetry used for every operation.
func WithInstruments(inst *observe.Instruments) Option {
	return func(m *Manager) {
		if inst != nil {
			m.inst = inst
		}
	}
}

// WithCodec overrides the payload codec.
func WithCodec(c *Codec) Option {
	return func(m *Manager) {
		if c != nil {
			m.codec = c
		}
	}
}

// WithMetadataPolicy overrides the TTL policy for metadata entries.
// The policy's DefaultTTL is also the TTL applied on a valid read.
func WithMetadataPolicy(p cache.Policy) Option {
	return func(m *Manager) { m.metadataPolicy = p }
}

// WithSuggestionPolicy overrides the TTL policy for suggestion entries.
func WithSuggestionPolicy(p cache.Policy) Option {
	return func(m *Manager) { m.suggestPolicy = p }
}

// New creates a Manager.
func New(store cache.Store, entities EntityStore, epoch *Epoch, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, cache.ErrNilStore
	}
	if entities == nil {
		return nil, ErrNilEntityStore
	}
	if epoch == nil {
		return nil, ErrNilEpoch
	}

	m := &Manager{
		store:          store,
		entities:       entities,
		epoch:          epoch,
		metadataPolicy: cache.DefaultPolicy(),
		suggestPolicy:  cache.DefaultPolicy(),
		inst:           observe.NopInstruments(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.codec == nil {
		codec, err := NewCodec(DefaultCompressAbove)
		if err != nil {
			return nil, err
		}
		m.codec = codec
	}
	return m, nil
}

// Epoch returns the epoch handle the manager validates against.
func (m *Manager) Epoch() *Epoch {
	return m.epoch
}

// Store returns the backing store.
func (m *Manager) Store() cache.Store {
	return m.store
}

func (m *Manager) write(ctx context.Context, kind, key string, v any, ttl time.Duration) (observe.Outcome, error) {
	payload, err := m.codec.Marshal(v)
	if err != nil {
		return observe.OutcomeError, err
	}
	if err := m.store.Set(ctx, key, payload, ttl); err != nil {
		return observe.OutcomeError, fmt.Errorf("doccache: write %s: %w", kind, err)
	}
	return observe.OutcomeOK, nil
}

func (m *Manager) touch(ctx context.Context, kind string, id int64, key string, ttl time.Duration) error {
	return m.inst.Track(ctx, observe.OpMeta{Kind: kind, Op: "refresh", Key: key}, func(ctx context.Context) (observe.Outcome, error) {
		if err := m.store.Touch(ctx, key, ttl); err != nil {
			return observe.OutcomeError, fmt.Errorf("doccache: refresh %s %d: %w", kind, id, err)
		}
		return observe.OutcomeOK, nil
	})
}

func (m *Manager) remove(ctx context.Context, kind string, id int64, key string) error {
	return m.inst.Track(ctx, observe.OpMeta{Kind: kind, Op: "invalidate", Key: key}, func(ctx context.Context) (observe.Outcome, error) {
		if err := m.store.Delete(ctx, key); err != nil {
			return observe.OutcomeError, fmt.Errorf("doccache: invalidate %s %d: %w", kind, id, err)
		}
		return observe.OutcomeOK, nil
	})
}

// evict deletes a stale entry. A non-nil cause marks an anomaly and is
// logged at warn.
func (m *Manager) evict(ctx context.Context, kind, key, reason string, cause error) (observe.Outcome, error) {
	if cause != nil {
		m.inst.Logger().Warn(ctx, "discarding unusable cache entry",
			observe.Field{Key: "kind", Value: kind},
			observe.Field{Key: "key", Value: key},
			observe.Field{Key: "reason", Value: reason},
			observe.Field{Key: "error", Value: cause},
		)
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return observe.OutcomeError, fmt.Errorf("doccache: delete stale %s: %w", key, err)
	}
	m.inst.Invalidated(ctx, kind, key, reason)
	return observe.OutcomeStale, nil
}
