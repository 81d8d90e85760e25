package unicam

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitimetable/timetable/internal/model"
	"github.com/unitimetable/timetable/internal/upstream"
)

var fixedNow = time.Date(2024, time.June, 12, 10, 30, 0, 0, time.UTC)

type fakePortal struct {
	calls atomic.Int32

	mu      sync.Mutex
	queries []url.Values

	scheduleStatus int
	scheduleBody   string
	catalogStatus  int
	catalogBody    string
	modalBody      map[string]string
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.calls.Add(1)
	p.mu.Lock()
	p.queries = append(p.queries, r.URL.Query())
	p.mu.Unlock()

	switch r.URL.Path {
	case "/controller/ajaxController.php":
		q := r.URL.Query()
		if q.Get("method") == "getModalDataLezione" {
			body, ok := p.modalBody[q["parametri[]"][0]]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
			return
		}
		if p.scheduleStatus != 0 {
			w.WriteHeader(p.scheduleStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(p.scheduleBody))
	case "/":
		if p.catalogStatus != 0 {
			w.WriteHeader(p.catalogStatus)
			return
		}
		_, _ = w.Write([]byte(p.catalogBody))
	default:
		http.NotFound(w, r)
	}
}

func newTestSource(t *testing.T, portal *fakePortal, cfg Config) *Source {
	t.Helper()
	srv := httptest.NewServer(portal)
	t.Cleanup(srv.Close)

	cfg.ScheduleURL = srv.URL
	cfg.CatalogURL = srv.URL
	client := upstream.NewClient(upstream.Options{Timeout: 5 * time.Second})
	return New(cfg, client, WithClock(func() time.Time { return fixedNow }))
}

func TestSource_LessonsRequest(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{scheduleBody: scheduleBody}
	src := newTestSource(t, portal, Config{})

	lessons, err := src.Lessons(context.Background(), map[string]string{"course_id": "12", "course_year": "2"})
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	require.Len(t, portal.queries, 1)
	q := portal.queries[0]
	assert.Equal(t, "../didattica/controller/orari.php", q.Get("filename"))
	assert.Equal(t, "OrariController", q.Get("class"))
	assert.Equal(t, "getDateLezioniByPercorsoCalendar", q.Get("method"))
	assert.Equal(t, []string{"12", "false", "2"}, q["parametri[]"])

	start, err := time.Parse(time.RFC3339, q.Get("start"))
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, q.Get("end"))
	require.NoError(t, err)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, "2024-06-10T00:00:00Z", q.Get("start"))
	assert.Equal(t, 21*24*time.Hour, end.Sub(start)+24*time.Hour)
}

func TestSource_InvalidQueryNeverReachesUpstream(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{scheduleBody: scheduleBody}
	src := newTestSource(t, portal, Config{})

	queries := []map[string]string{
		{"course_id": "12", "course_year": "7"},
		{"course_id": "12", "course_year": "x"},
		{"course_id": "12", "course_year": "2", "weeks": "0"},
		{"course_id": "12", "course_year": "2", "weeks": "9"},
		{"course_year": "2"},
	}
	for _, q := range queries {
		_, err := src.Lessons(context.Background(), q)
		require.Error(t, err)
		assert.Equal(t, model.FaultUser, model.AsError(err).Fault, "%v", q)
		assert.Equal(t, http.StatusBadRequest, model.AsError(err).Status())
	}
	assert.Zero(t, portal.calls.Load())
}

func TestSource_UpstreamUnavailableIsExternal(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{scheduleStatus: http.StatusServiceUnavailable}
	src := newTestSource(t, portal, Config{})

	_, err := src.Lessons(context.Background(), map[string]string{"course_id": "12", "course_year": "2"})
	require.Error(t, err)

	var merr *model.Error
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, model.FaultExternal, merr.Fault)
	assert.Equal(t, http.StatusBadGateway, merr.Status())
	assert.Equal(t, "The server responded with status code: 503", merr.Message)
}

func TestSource_NonOKSuccessStatusIsExternal(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNonAuthoritativeInfo, http.StatusNoContent} {
		portal := &fakePortal{scheduleStatus: status, catalogStatus: status}
		src := newTestSource(t, portal, Config{})

		_, err := src.Lessons(context.Background(), map[string]string{"course_id": "12", "course_year": "2"})
		require.Error(t, err, "lessons %d", status)
		merr := model.AsError(err)
		assert.Equal(t, model.FaultExternal, merr.Fault, "lessons %d", status)
		assert.Equal(t, http.StatusBadGateway, merr.Status())

		courses, err := src.Courses(context.Background(), nil)
		require.Error(t, err, "courses %d", status)
		assert.Nil(t, courses)
		assert.Equal(t, model.FaultExternal, model.AsError(err).Fault, "courses %d", status)
	}
}

func TestSource_TransportErrorIsInternal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	src := New(Config{ScheduleURL: base, CatalogURL: base},
		upstream.NewClient(upstream.Options{Timeout: time.Second}),
		WithClock(func() time.Time { return fixedNow }))

	_, err := src.Courses(context.Background(), nil)
	require.Error(t, err)

	merr := model.AsError(err)
	assert.Equal(t, model.FaultInternal, merr.Fault)
	assert.Equal(t, http.StatusInternalServerError, merr.Status())
	assert.Equal(t, "Connection error while attempting to fetch", merr.Message)
}

func TestSource_MalformedLessonsIsInternal(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{scheduleBody: `[{"title":"X","start":1,"end":2,"description":"Aula senza docenti"}]`}
	src := newTestSource(t, portal, Config{})

	_, err := src.Lessons(context.Background(), map[string]string{"course_id": "12", "course_year": "2"})
	require.Error(t, err)

	merr := model.AsError(err)
	assert.Equal(t, model.FaultInternal, merr.Fault)
	assert.Contains(t, merr.Detail, "start=2024-06-10T00:00:00Z")
	assert.Contains(t, merr.Detail, "Aula senza docenti")
	assert.Contains(t, merr.Detail, "course_id:12")
}

func TestSource_NonArrayLessonsIsInternal(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{scheduleBody: `{"message":"sessione scaduta"}`}
	src := newTestSource(t, portal, Config{})

	_, err := src.Lessons(context.Background(), map[string]string{"course_id": "12", "course_year": "2"})
	require.Error(t, err)
	assert.Equal(t, model.FaultInternal, model.AsError(err).Fault)
}

func TestSource_Courses(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{catalogBody: catalogPage}
	src := newTestSource(t, portal, Config{})

	courses, err := src.Courses(context.Background(), map[string]string{"ignored": "1"})
	require.NoError(t, err)
	assert.Len(t, courses, 4)
	assert.Equal(t, "Informatica", courses[0].Name)
}

func TestSource_CoursesWithoutCatalogIsInternal(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{catalogBody: "<html><body>Sito in manutenzione</body></html>"}
	src := newTestSource(t, portal, Config{})

	courses, err := src.Courses(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, courses)

	merr := model.AsError(err)
	assert.Equal(t, model.FaultInternal, merr.Fault)
	assert.Equal(t, http.StatusInternalServerError, merr.Status())
	assert.Contains(t, merr.Detail, "Sito in manutenzione")
}

func TestSource_CoursesUpstreamErrorIsExternal(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{catalogStatus: http.StatusInternalServerError}
	src := newTestSource(t, portal, Config{})

	_, err := src.Courses(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, model.FaultExternal, model.AsError(err).Fault)
	assert.Equal(t, "Error while crawling courses from unicam", model.AsError(err).Title)
}

func TestSource_WebexLinks(t *testing.T) {
	t.Parallel()

	portal := &fakePortal{
		scheduleBody: scheduleBody,
		modalBody:    map[string]string{"101": modalPage},
	}
	src := newTestSource(t, portal, Config{WebexLinks: true})

	lessons, err := src.Lessons(context.Background(), map[string]string{"course_id": "12", "course_year": "2"})
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	require.NotNil(t, lessons[0].Description)
	assert.Equal(t,
		"Link webex: \nhttps://unicam.webex.com/meet/mario.rossi\nhttps://unicam.webex.com/meet/anna.bianchi",
		*lessons[0].Description)
	// Modal for 102 answers 404: the lesson is kept without links.
	assert.Nil(t, lessons[1].Description)
	assert.Equal(t, int32(3), portal.calls.Load())
}
