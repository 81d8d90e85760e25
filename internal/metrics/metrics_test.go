package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CacheLookups(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheLookup("unicam", "lessons", LookupHit)
	c.RecordCacheLookup("unicam", "lessons", LookupHit)
	c.RecordCacheLookup("unicam", "courses", LookupMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("unicam", "lessons", LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("unicam", "courses", LookupMiss)))
}

func TestCollector_Gather(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheWriteFailure("unicam", "lessons")
	c.RecordFetch("unicam", "lessons", "External")
	c.RecordUpstreamLatency("unicam", "lessons", 150*time.Millisecond)
	c.RecordSkippedRecord("unicam", "courses")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"timetable_cache_write_failures_total",
		"timetable_fetches_total",
		"timetable_upstream_request_duration_seconds",
		"timetable_parse_skipped_records_total",
	} {
		assert.True(t, names[want], "metric %s not gathered", want)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordFetch("unicam", "courses", OutcomeOK)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `timetable_fetches_total{namespace="courses",outcome="ok",source="unicam"} 1`)
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = Nop{}
	r.RecordCacheLookup("a", "b", LookupError)
	r.RecordUpstreamLatency("a", "b", time.Second)
}
