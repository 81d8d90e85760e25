// Package purge serves manual invalidation of every cached result of a
// source. It is meant to be reachable from the operator network only.
package purge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/lock"
	"github.com/unitimetable/timetable/internal/source"
)

const (
	MethodPurge = "PURGE"

	defaultLockTTL = 30 * time.Second
)

// Locker serializes purges of the same source across replicas.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (*lock.Lease, bool, error)
}

// Handler answers PURGE /timetable/{source}. The source id is read by
// SourceID so the handler does not depend on a router.
type Handler struct {
	Store    cache.Purger
	Registry *source.Registry
	Logger   *slog.Logger
	SourceID func(r *http.Request) string
	// Locker is optional. Without it purges of one source may overlap,
	// which is harmless but wasteful.
	Locker  Locker
	LockTTL time.Duration
}

type purgeResult struct {
	Purged int `json:"purged"`
}

type purgeError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != MethodPurge {
		w.Header().Set("Allow", MethodPurge)
		writeJSON(w, http.StatusMethodNotAllowed, purgeError{Error: "Method Not Allowed"})
		return
	}

	id := source.NormalizeID(h.SourceID(r))
	if _, ok := h.Registry.Lookup(id); !ok {
		writeJSON(w, http.StatusNotFound, purgeError{
			Error:   "Not Found",
			Message: "No crawler found for source '" + id + "'",
		})
		return
	}

	if h.Locker != nil {
		ttl := h.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		lease, ok, err := h.Locker.TryLock(r.Context(), "purge:"+id, ttl)
		if err != nil {
			h.logger().Error("purge lock failed", slog.String("source", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, purgeError{Error: "Bad Gateway", Message: "Cache store error"})
			return
		}
		if !ok {
			writeJSON(w, http.StatusConflict, purgeError{
				Error:   "Conflict",
				Message: "A purge of source '" + id + "' is already running",
			})
			return
		}
		defer func() {
			if err := lease.Unlock(context.WithoutCancel(r.Context())); err != nil {
				h.logger().Warn("purge unlock failed", slog.String("source", id), slog.String("error", err.Error()))
			}
		}()
	}

	n, err := cache.PurgeSource(r.Context(), h.Store, id)
	if err != nil {
		h.logger().Error("cache purge failed",
			slog.String("source", id),
			slog.Int("purged", n),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, purgeError{Error: "Bad Gateway", Message: "Cache store error"})
		return
	}

	h.logger().Info("cache purged", slog.String("source", id), slog.Int("purged", n))
	writeJSON(w, http.StatusOK, purgeResult{Purged: n})
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
