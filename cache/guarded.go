package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the state of a GuardedStore's circuit breaker.
type BreakerState int

const (
	// BreakerClosed means calls pass through to the store.
	BreakerClosed BreakerState = iota
	// BreakerOpen means calls fail fast with ErrStoreUnavailable.
	BreakerOpen
	// BreakerHalfOpen means a single probe call is let through.
	BreakerHalfOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// GuardConfig configures a GuardedStore.
type GuardConfig struct {
	// MaxFailures is the number of consecutive failures before the breaker opens.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// OpTimeout bounds each store call. Zero leaves calls unbounded.
	OpTimeout time.Duration

	// OnStateChange is called when the breaker changes state.
	OnStateChange func(from, to BreakerState)
}

// GuardedStore wraps a Store so that an unreachable backend degrades into
// fast ErrStoreUnavailable failures instead of stalling every reader. It
// never retries; a failed call is reported to the caller as-is.
type GuardedStore struct {
	store  Store
	config GuardConfig
	now    func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewGuardedStore wraps store with a circuit breaker.
func NewGuardedStore(store Store, config GuardConfig) *GuardedStore {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	return &GuardedStore{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// State returns the current breaker state.
func (g *GuardedStore) State() BreakerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Get implements Store.
func (g *GuardedStore) Get(ctx context.Context, key string) (val []byte, ok bool, err error) {
	err = g.do(ctx, func(ctx context.Context) error {
		var inner error
		val, ok, inner = g.store.Get(ctx, key)
		return inner
	})
	return val, ok, err
}

// GetMany implements Store.
func (g *GuardedStore) GetMany(ctx context.Context, keys []string) (found map[string][]byte, err error) {
	err = g.do(ctx, func(ctx context.Context) error {
		var inner error
		found, inner = g.store.GetMany(ctx, keys)
		return inner
	})
	return found, err
}

// Set implements Store.
func (g *GuardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.do(ctx, func(ctx context.Context) error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

// Touch implements Store.
func (g *GuardedStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	return g.do(ctx, func(ctx context.Context) error {
		return g.store.Touch(ctx, key, ttl)
	})
}

// Delete implements Store.
func (g *GuardedStore) Delete(ctx context.Context, key string) error {
	return g.do(ctx, func(ctx context.Context) error {
		return g.store.Delete(ctx, key)
	})
}

// Ping pings the wrapped store if it supports it. Ping bypasses the breaker
// so health checks observe the backend directly.
func (g *GuardedStore) Ping(ctx context.Context) error {
	if p, ok := g.store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (g *GuardedStore) do(ctx context.Context, op func(context.Context) error) error {
	if err := g.allow(); err != nil {
		return err
	}

	callCtx := ctx
	if g.config.OpTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.config.OpTimeout)
		defer cancel()
	}

	err := op(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrStoreTimeout, err)
	}

	g.record(ctx, err)
	return err
}

func (g *GuardedStore) allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case BreakerOpen:
		if g.now().Sub(g.openedAt) < g.config.ResetTimeout {
			return ErrStoreUnavailable
		}
		g.setState(BreakerHalfOpen)
		g.probing = true
		return nil
	case BreakerHalfOpen:
		if g.probing {
			return ErrStoreUnavailable
		}
		g.probing = true
		return nil
	default:
		return nil
	}
}

func (g *GuardedStore) record(ctx context.Context, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.probing = false

	// Caller cancellation says nothing about the backend.
	if err != nil && ctx.Err() != nil {
		return
	}

	failed := err != nil &&
		!errors.Is(err, ErrInvalidKey) &&
		!errors.Is(err, ErrKeyTooLong) &&
		!errors.Is(err, ErrInvalidTTL)

	if !failed {
		g.failures = 0
		if g.state == BreakerHalfOpen {
			g.setState(BreakerClosed)
		}
		return
	}

	if g.state == BreakerHalfOpen {
		g.trip()
		return
	}

	g.failures++
	if g.failures >= g.config.MaxFailures {
		g.trip()
	}
}

func (g *GuardedStore) trip() {
	g.failures = 0
	g.openedAt = g.now()
	g.setState(BreakerOpen)
}

// setState must be called with mu held.
func (g *GuardedStore) setState(to BreakerState) {
	from := g.state
	if from == to {
		return
	}
	g.state = to
	if g.config.OnStateChange != nil {
		g.config.OnStateChange(from, to)
	}
}

var (
	_ Store  = (*GuardedStore)(nil)
	_ Pinger = (*GuardedStore)(nil)
)
