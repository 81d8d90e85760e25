// Package unicam implements the Università di Camerino timetable source.
//
// Courses come from the option groups of the public timetable page; lessons
// come from the JSON calendar feed of the didactic portal.
package unicam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/unitimetable/timetable/internal/cache"
	"github.com/unitimetable/timetable/internal/metrics"
	"github.com/unitimetable/timetable/internal/model"
	"github.com/unitimetable/timetable/internal/upstream"
)

const (
	ID   = "unicam"
	Name = "Università di Camerino"

	DefaultScheduleURL = "https://unifare.unicam.it"
	DefaultCatalogURL  = "https://orarilezioni.unicam.it"

	scheduleFilename = "../didattica/controller/orari.php"
	scheduleClass    = "OrariController"

	bodyExcerpt = 2048
)

// Fetcher performs GET requests against the upstream portals.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, query url.Values) ([]byte, error)
}

type Config struct {
	ScheduleURL string
	CatalogURL  string
	// WebexLinks enables one extra modal request per lesson to collect
	// meeting links.
	WebexLinks       bool
	WebexConcurrency int
}

type Option func(*Source)

func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(s *Source) { s.metrics = r }
}

// WithClock overrides the clock used to derive the lesson window.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

type Source struct {
	cfg     Config
	client  Fetcher
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
	parser  *lessonParser
}

func New(cfg Config, client Fetcher, opts ...Option) *Source {
	if cfg.ScheduleURL == "" {
		cfg.ScheduleURL = DefaultScheduleURL
	}
	if cfg.CatalogURL == "" {
		cfg.CatalogURL = DefaultCatalogURL
	}
	if cfg.WebexConcurrency <= 0 {
		cfg.WebexConcurrency = defaultWebexConcurrency
	}
	s := &Source{
		cfg:     cfg,
		client:  client,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
		now:     time.Now,
		parser:  newLessonParser(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("source", ID))
	return s
}

func (s *Source) Lessons(ctx context.Context, query map[string]string) ([]model.Lesson, error) {
	p, err := parseLessonQuery(query)
	if err != nil {
		return nil, err
	}

	start, end := Window(s.now(), p.weeks)
	q := url.Values{}
	q.Set("filename", scheduleFilename)
	q.Set("class", scheduleClass)
	q.Set("method", "getDateLezioniByPercorsoCalendar")
	q.Add("parametri[]", p.courseID)
	q.Add("parametri[]", "false")
	q.Add("parametri[]", p.courseYear)
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	body, err := s.fetch(ctx, cache.NamespaceLessons, s.scheduleEndpoint(), q)
	if err != nil {
		return nil, classify(err, "Error while crawling lessons from unicam")
	}

	raw, err := s.parser.parse(body)
	if err != nil {
		return nil, model.InternalError("Error while parsing crawled data from unicam", err.Error(), err).
			WithDetail(fmt.Sprintf("query=%v start=%s end=%s body=%s",
				query, start.Format(time.RFC3339), end.Format(time.RFC3339), upstream.Snippet(body, bodyExcerpt)))
	}

	if s.cfg.WebexLinks {
		s.enrichWithWebex(ctx, raw)
	}

	lessons := make([]model.Lesson, 0, len(raw))
	for _, r := range raw {
		lessons = append(lessons, r.lesson)
	}
	return lessons, nil
}

func (s *Source) Courses(ctx context.Context, _ map[string]string) ([]model.Course, error) {
	body, err := s.fetch(ctx, cache.NamespaceCourses, strings.TrimRight(s.cfg.CatalogURL, "/")+"/", nil)
	if err != nil {
		return nil, classify(err, "Error while crawling courses from unicam")
	}

	courses, err := parseCourses(string(body), func(reason string, attrs ...any) {
		s.metrics.RecordSkippedRecord(ID, string(cache.NamespaceCourses))
		s.logger.Warn(reason, attrs...)
	})
	if err != nil {
		return nil, model.InternalError("Error while parsing crawled data from unicam", err.Error(), err).
			WithDetail("body=" + upstream.Snippet(body, bodyExcerpt))
	}
	return courses, nil
}

func (s *Source) fetch(ctx context.Context, ns cache.Namespace, endpoint string, q url.Values) ([]byte, error) {
	started := time.Now()
	body, err := s.client.Get(ctx, endpoint, q)
	s.metrics.RecordUpstreamLatency(ID, string(ns), time.Since(started))
	return body, err
}

func (s *Source) scheduleEndpoint() string {
	return strings.TrimRight(s.cfg.ScheduleURL, "/") + "/controller/ajaxController.php"
}

// classify maps an upstream client error to the fault taxonomy: a response
// with a non-success status is the upstream's fault, anything else is ours.
func classify(err error, title string) *model.Error {
	var serr *upstream.StatusError
	if errors.As(err, &serr) {
		return model.ExternalError(title, fmt.Sprintf("The server responded with status code: %d", serr.StatusCode)).
			WithDetail(serr.Error())
	}
	e := model.InternalError(title, "Connection error while attempting to fetch", err)
	return e.WithDetail(err.Error())
}
