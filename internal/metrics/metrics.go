// Package metrics exposes Prometheus counters for the caching layer and the
// upstream sources.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupError   = "error"
	LookupCorrupt = "corrupt"
)

// OutcomeOK labels a fetch that returned data; failures use the fault name.
const OutcomeOK = "ok"

// Recorder is what the caching layer and the sources report to.
type Recorder interface {
	RecordCacheLookup(source, namespace, result string)
	RecordCacheWriteFailure(source, namespace string)
	RecordFetch(source, namespace, outcome string)
	RecordUpstreamLatency(source, operation string, d time.Duration)
	RecordSkippedRecord(source, namespace string)
}

type Collector struct {
	cacheLookups  *prometheus.CounterVec
	cacheWriteErr *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	upstream      *prometheus.HistogramVec
	skipped       *prometheus.CounterVec
}

// NewCollector registers the timetable metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_cache_lookups_total",
			Help: "Cache lookups by result.",
		}, []string{"source", "namespace", "result"}),
		cacheWriteErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_cache_write_failures_total",
			Help: "Cache writes that failed and were ignored.",
		}, []string{"source", "namespace"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_fetches_total",
			Help: "Raw source fetches by outcome.",
		}, []string{"source", "namespace", "outcome"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetable_upstream_request_duration_seconds",
			Help:    "Latency of upstream requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"source", "operation"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_parse_skipped_records_total",
			Help: "Upstream records that could not be parsed and were skipped.",
		}, []string{"source", "namespace"}),
	}

	reg.MustRegister(c.cacheLookups, c.cacheWriteErr, c.fetches, c.upstream, c.skipped)
	return c
}

func (c *Collector) RecordCacheLookup(source, namespace, result string) {
	c.cacheLookups.WithLabelValues(source, namespace, result).Inc()
}

func (c *Collector) RecordCacheWriteFailure(source, namespace string) {
	c.cacheWriteErr.WithLabelValues(source, namespace).Inc()
}

func (c *Collector) RecordFetch(source, namespace, outcome string) {
	c.fetches.WithLabelValues(source, namespace, outcome).Inc()
}

func (c *Collector) RecordUpstreamLatency(source, operation string, d time.Duration) {
	c.upstream.WithLabelValues(source, operation).Observe(d.Seconds())
}

func (c *Collector) RecordSkippedRecord(source, namespace string) {
	c.skipped.WithLabelValues(source, namespace).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordCacheLookup(string, string, string)            {}
func (Nop) RecordCacheWriteFailure(string, string)              {}
func (Nop) RecordFetch(string, string, string)                  {}
func (Nop) RecordUpstreamLatency(string, string, time.Duration) {}
func (Nop) RecordSkippedRecord(string, string)                  {}

// Handler serves the gathered metrics for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
