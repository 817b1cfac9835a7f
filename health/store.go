package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jonwraymond/artifactcache/cache"
	"github.com/jonwraymond/artifactcache/doccache"
)

// breaker is implemented by cache.GuardedStore.
type breaker interface {
	State() cache.BreakerState
}

// StoreChecker round-trips a probe key through a cache store.
type StoreChecker struct {
	name     string
	store    cache.Store
	probeKey string
}

// NewStoreChecker creates a checker for store. Each checker uses its own
// probe key so instances sharing a store do not interfere.
func NewStoreChecker(name string, store cache.Store) *StoreChecker {
	return &StoreChecker{
		name:     name,
		store:    store,
		probeKey: fmt.Sprintf("health_probe_%d_%d", os.Getpid(), time.Now().UnixNano()),
	}
}

// Name returns the checker name.
func (c *StoreChecker) Name() string { return c.name }

// Check writes, reads back and deletes the probe key. A store bypassed by
// an open circuit breaker is degraded; any other failure is unhealthy.
func (c *StoreChecker) Check(ctx context.Context) Result {
	details := map[string]any{}
	if b, ok := c.store.(breaker); ok {
		details["breaker"] = b.State().String()
	}

	if err := c.roundTrip(ctx); err != nil {
		if errors.Is(err, cache.ErrStoreUnavailable) {
			return Degraded("store bypassed: circuit breaker open").WithDetails(details)
		}
		return Unhealthy("store round trip failed", err).WithDetails(details)
	}
	return Healthy("store round trip ok").WithDetails(details)
}

func (c *StoreChecker) roundTrip(ctx context.Context) error {
	want := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	if err := c.store.Set(ctx, c.probeKey, want, cache.TTLOneMinute); err != nil {
		return err
	}
	got, ok, err := c.store.Get(ctx, c.probeKey)
	if err != nil {
		return err
	}
	if !ok || !bytes.Equal(got, want) {
		return fmt.Errorf("%w: probe value not read back", ErrCheckFailed)
	}
	return c.store.Delete(ctx, c.probeKey)
}

// EpochChecker verifies a classifier epoch this build understands is
// published. Without one every suggestion read misses.
type EpochChecker struct {
	epoch *doccache.Epoch
	store cache.Store
}

// NewEpochChecker creates a checker named "classifier_epoch".
func NewEpochChecker(epoch *doccache.Epoch, store cache.Store) *EpochChecker {
	return &EpochChecker{epoch: epoch, store: store}
}

// Name returns the checker name.
func (c *EpochChecker) Name() string { return "classifier_epoch" }

// Check reports a missing or foreign epoch as degraded.
func (c *EpochChecker) Check(ctx context.Context) Result {
	state, err := c.epoch.Current(ctx, c.store)
	if err != nil {
		if errors.Is(err, cache.ErrStoreUnavailable) {
			return Degraded("epoch unknown: store unavailable")
		}
		return Unhealthy("epoch read failed", err)
	}

	details := map[string]any{"expected_version": c.epoch.FormatVersion}
	if !state.Published() {
		return Degraded("classifier epoch not published").WithDetails(details)
	}
	details["version"] = state.Version
	details["hash"] = state.Hash
	if !state.Modified.IsZero() {
		details["published_at"] = state.Modified.UTC().Format(time.RFC3339)
	}
	if state.Version != c.epoch.FormatVersion {
		return Degraded(fmt.Sprintf("published classifier version %d, expected %d",
			state.Version, c.epoch.FormatVersion)).WithDetails(details)
	}
	return Healthy("classifier epoch published").WithDetails(details)
}
