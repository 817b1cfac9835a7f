package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/artifactcache/cache"
	"github.com/jonwraymond/artifactcache/config"
	"github.com/jonwraymond/artifactcache/doccache"
	"github.com/jonwraymond/artifactcache/docstore"
	"github.com/jonwraymond/artifactcache/observe"
)

// runtime holds the components a command works with.
type runtime struct {
	cfg     config.Config
	obs     observe.Observer
	logger  observe.Logger
	store   *cache.GuardedStore
	backend cache.Store
	docs    *docstore.Store
	epoch   *doccache.Epoch
	mgr     *doccache.Manager
	closers []func() error
}

func (a *App) openRuntime(ctx context.Context) (_ *runtime, err error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	rt.obs, err = observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	rt.logger = rt.obs.Logger()
	inst, err := observe.InstrumentsFromObserver(rt.obs)
	if err != nil {
		return nil, err
	}

	backend, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if c, ok := backend.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, c.Close)
	}
	guard := cfg.GuardConfig()
	guard.OnStateChange = func(from, to cache.BreakerState) {
		rt.logger.Warn(context.Background(), "cache store breaker changed state",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
	}
	rt.backend = backend
	rt.store = cache.NewGuardedStore(backend, guard)

	db, err := docstore.Open(cfg.Database, rt.logger)
	if err != nil {
		return nil, err
	}
	rt.docs = docstore.New(db)
	rt.closers = append(rt.closers, rt.docs.Close)

	codec, err := doccache.NewCodec(cfg.Cache.CompressAbove)
	if err != nil {
		return nil, err
	}
	rt.epoch = doccache.NewEpoch(cfg.Cache.ClassifierFormatVersion)
	rt.mgr, err = doccache.New(rt.store, rt.docs, rt.epoch,
		doccache.WithInstruments(inst),
		doccache.WithCodec(codec),
		doccache.WithMetadataPolicy(cfg.MetadataPolicy()),
		doccache.WithSuggestionPolicy(cfg.SuggestionPolicy()),
	)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (cache.Store, error) {
	switch cfg.Driver {
	case config.StoreRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisStore(client, cfg.Redis.KeyPrefix), nil
	default:
		return cache.NewMemoryStore(), nil
	}
}

// Close releases every opened resource and flushes telemetry.
func (rt *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	if rt.obs != nil {
		if err := rt.obs.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withRuntime opens a runtime for the duration of fn.
func (a *App) withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) (err error) {
	rt, err := a.openRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rt.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, rt)
}
