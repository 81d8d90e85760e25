package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/config"
	httpx "github.com/unitimetable/timetable/internal/http"
	"github.com/unitimetable/timetable/internal/lock"
	"github.com/unitimetable/timetable/internal/metrics"
	"github.com/unitimetable/timetable/internal/purge"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the timetable HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("closing cache store", slog.String("error", err.Error()))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	registry, err := newRegistry(cfg, store, collector, log)
	if err != nil {
		return err
	}

	limiter := newRateLimiter(cfg)
	if limiter != nil {
		defer limiter.Stop()
	}

	var locker purge.Locker
	if rs, ok := store.(*cache.RedisStore); ok {
		locker = lock.NewRedisLocker(rs.Client(), "lock:")
	}

	router := httpx.NewRouter(httpx.RouterOptions{
		Registry:       registry,
		Store:          store,
		Logger:         log,
		Metrics:        metrics.Handler(reg),
		HandlerTimeout: cfg.HandlerTimeout,
		RateLimiter:    limiter,
		PurgeEnabled:   cfg.PurgeEnabled,
		PurgeLocker:    locker,
		TrustProxy:     cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: writeTimeout(cfg.HandlerTimeout),
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("cache_backend", cfg.CacheBackend),
			slog.Any("sources", registry.IDs()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newRateLimiter returns nil when the rate is zero, which disables
// throttling.
func newRateLimiter(cfg config.Config) *httpx.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	return httpx.NewRateLimiter(httpx.RateLimitConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	})
}

// writeTimeout leaves room for the handler timeout to answer first. Without
// a handler timeout responses are not cut off at all.
func writeTimeout(handlerTimeout time.Duration) time.Duration {
	if handlerTimeout <= 0 {
		return 0
	}
	return handlerTimeout + 5*time.Second
}
