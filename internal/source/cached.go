package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/metrics"
	"github.com/unitimetable/timetable/internal/model"
)

const defaultOpTimeout = 2 * time.Second

// CacheOptions tunes a Cached source. Zero values pick defaults.
type CacheOptions struct {
	Logger    *slog.Logger
	Metrics   metrics.Recorder
	OpTimeout time.Duration
}

// Cached is a read-through cache in front of a Source. It is itself a
// Source.
//
// The cache is strictly best-effort: store failures of any kind are logged
// and the call falls through to the wrapped source. Fetch errors are returned
// unchanged. Concurrent misses on the same key are not coalesced, so each of
// them reaches the upstream and the last write wins.
type Cached struct {
	inner     Source
	sourceID  string
	store     cache.Store
	logger    *slog.Logger
	metrics   metrics.Recorder
	opTimeout time.Duration
}

func NewCached(inner Source, sourceID string, store cache.Store, opts CacheOptions) *Cached {
	if store == nil {
		store = cache.NopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	id := NormalizeID(sourceID)
	return &Cached{
		inner:     inner,
		sourceID:  id,
		store:     store,
		logger:    opts.Logger.With(slog.String("source", id)),
		metrics:   opts.Metrics,
		opTimeout: opts.OpTimeout,
	}
}

func (c *Cached) Lessons(ctx context.Context, query map[string]string) ([]model.Lesson, error) {
	return readThrough(ctx, c, cache.NamespaceLessons, query, c.inner.Lessons)
}

func (c *Cached) Courses(ctx context.Context, query map[string]string) ([]model.Course, error) {
	return readThrough(ctx, c, cache.NamespaceCourses, query, c.inner.Courses)
}

func readThrough[T any](ctx context.Context, c *Cached, ns cache.Namespace, query map[string]string, fetch func(context.Context, map[string]string) ([]T, error)) ([]T, error) {
	key := cache.NewKey(ns, c.sourceID, query).String()
	log := c.logger.With(slog.String("namespace", string(ns)), slog.String("key", key))

	getCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	payload, err := c.store.Get(getCtx, key)
	cancel()
	switch {
	case err == nil:
		items, decodeErr := cache.Decode[T](payload)
		if decodeErr == nil {
			c.metrics.RecordCacheLookup(c.sourceID, string(ns), metrics.LookupHit)
			return items, nil
		}
		c.metrics.RecordCacheLookup(c.sourceID, string(ns), metrics.LookupCorrupt)
		log.Warn("dropping undecodable cache entry", slog.String("error", decodeErr.Error()))
		c.detached(ctx, func(ctx context.Context) error {
			return c.store.Delete(ctx, key)
		}, log, "cache delete failed")
	case errors.Is(err, cache.ErrNotFound):
		c.metrics.RecordCacheLookup(c.sourceID, string(ns), metrics.LookupMiss)
	default:
		c.metrics.RecordCacheLookup(c.sourceID, string(ns), metrics.LookupError)
		log.Warn("cache lookup failed", slog.String("error", err.Error()))
	}

	items, err := fetch(ctx, query)
	if err != nil {
		c.metrics.RecordFetch(c.sourceID, string(ns), string(model.AsError(err).Fault))
		return nil, err
	}
	c.metrics.RecordFetch(c.sourceID, string(ns), metrics.OutcomeOK)
	if items == nil {
		items = []T{}
	}

	encoded, err := cache.Encode(items)
	if err != nil {
		c.metrics.RecordCacheWriteFailure(c.sourceID, string(ns))
		log.Warn("cache encode failed", slog.String("error", err.Error()))
		return items, nil
	}
	ok := c.detached(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, key, encoded, ns.TTL())
	}, log, "cache write failed")
	if !ok {
		c.metrics.RecordCacheWriteFailure(c.sourceID, string(ns))
	}
	return items, nil
}

// detached runs op on a context that survives the caller's cancellation but
// is bounded by the store timeout. It reports whether op succeeded.
func (c *Cached) detached(ctx context.Context, op func(context.Context) error, log *slog.Logger, msg string) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()
	if err := op(ctx); err != nil {
		log.Warn(msg, slog.String("error", err.Error()))
		return false
	}
	return true
}
