package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/artifactcache/auth"
	"github.com/jonwraymond/artifactcache/cache"
	"github.com/jonwraymond/artifactcache/health"
	"github.com/jonwraymond/artifactcache/observe"
)

func (a *App) newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cached entries, health checks and metrics over HTTP",
		Long: `Serve starts an HTTP server exposing:

  /healthz, /readyz, /health   liveness, readiness and detailed health
  /metrics                     Prometheus metrics
  /v1/documents/{id}/...       cached metadata and suggestions (bearer auth when server.auth.enabled)
  /v1/epoch                    the published classifier epoch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				addr := rt.cfg.Server.ListenAddr
				if listen != "" {
					addr = listen
				}
				ln, err := net.Listen("tcp", addr)
				if err != nil {
					return fmt.Errorf("listen %s: %w", addr, err)
				}
				return serve(ctx, ln, rt)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides server.listen_addr)")
	return cmd
}

func newHandler(rt *runtime) (http.Handler, error) {
	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker("cache", rt.store))
	agg.Register(health.NewEpochChecker(rt.epoch, rt.store))
	agg.Register(health.NewPingChecker("database", rt.docs))
	if mem, ok := rt.backend.(*cache.MemoryStore); ok {
		agg.Register(health.NewMemoryChecker(health.MemoryCheckerConfig{
			MaxAlloc: rt.cfg.Store.MemoryLimit,
			Entries:  mem,
		}))
	}

	v1 := http.NewServeMux()
	(&api{rt: rt}).register(v1)
	var apiHandler http.Handler = v1
	if authCfg := rt.cfg.Server.Auth; authCfg.Enabled {
		authn, err := auth.NewJWTAuthenticator(authCfg)
		if err != nil {
			return nil, err
		}
		apiHandler = auth.Middleware(authn, rt.logger)(v1)
	}

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, agg)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/v1/", apiHandler)
	return mux, nil
}

// serve runs the HTTP server on ln until ctx is done.
func serve(ctx context.Context, ln net.Listener, rt *runtime) error {
	handler, err := newHandler(rt)
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	rt.logger.Info(ctx, "serving", observe.Field{Key: "addr", Value: ln.Addr().String()})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	rt.logger.Info(shutdownCtx, "server stopped")
	return nil
}
