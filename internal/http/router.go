// Package httpx is the HTTP boundary of the timetable service.
package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/purge"
	"github.com/unitimetable/timetable/internal/source"
)

const readyTimeout = 2 * time.Second

func init() {
	chi.RegisterMethod(purge.MethodPurge)
}

type RouterOptions struct {
	Registry *source.Registry
	// Store backs readiness and purge; it may be nil.
	Store          cache.Store
	Logger         *slog.Logger
	Metrics        http.Handler
	HandlerTimeout time.Duration
	// RateLimiter is applied to the timetable routes when set.
	RateLimiter  *RateLimiter
	PurgeEnabled bool
	// PurgeLocker serializes purges across replicas when set.
	PurgeLocker purge.Locker
	// TrustProxy takes the client address from forwarding headers. Without
	// it the rate limiter keys on the socket peer, so callers cannot pick
	// their own bucket.
	TrustProxy bool
}

func NewRouter(opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(opts.Registry, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(AccessLog(logger))
	r.Use(Recover(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/readyz", readyHandler(opts.Store, logger))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Get("/orario/unicam/ics", h.LegacyICS)

	r.Route("/timetable", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		if opts.HandlerTimeout > 0 {
			r.Use(middleware.Timeout(opts.HandlerTimeout))
		}

		r.Get("/sources", h.Sources)
		r.Get("/{source}/courses", h.Courses)
		r.Get("/{source}/lessons", h.Lessons)
		r.Get("/{source}/lessons.ics", h.LessonsICS)

		if p, ok := opts.Store.(cache.Purger); ok && opts.PurgeEnabled {
			r.Method(purge.MethodPurge, "/{source}", &purge.Handler{
				Store:    p,
				Registry: opts.Registry,
				Logger:   logger,
				SourceID: func(r *http.Request) string { return chi.URLParam(r, "source") },
				Locker:   opts.PurgeLocker,
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found"})
	})
	return r
}

type readiness struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

// readyHandler reports cache reachability without failing readiness: the
// service keeps answering from upstream when the cache is down.
func readyHandler(store cache.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := store.(cache.Pinger)
		if !ok {
			writeJSON(w, http.StatusOK, readiness{Status: "ok", Cache: "disabled"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			logger.Warn("cache store unreachable", slog.String("error", err.Error()))
			writeJSON(w, http.StatusOK, readiness{Status: "ok", Cache: "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, readiness{Status: "ok", Cache: "ok"})
	}
}
