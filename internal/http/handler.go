package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unitimetable/timetable/internal/source"
)

type Handler struct {
	Registry *source.Registry
	Logger   *slog.Logger
	// Now stamps generated calendars; nil means time.Now.
	Now func() time.Time
}

func NewHandler(registry *source.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Registry: registry, Logger: logger, Now: time.Now}
}

// Sources lists registered sources as id to display name.
func (h *Handler) Sources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Registry.Names())
}

func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	id, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	courses, err := src.Courses(r.Context(), queryMap(r))
	if err != nil {
		writeError(w, r, h.Logger, id, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *Handler) Lessons(w http.ResponseWriter, r *http.Request) {
	id, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	lessons, err := src.Lessons(r.Context(), queryMap(r))
	if err != nil {
		writeError(w, r, h.Logger, id, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (h *Handler) LessonsICS(w http.ResponseWriter, r *http.Request) {
	id, src, ok := h.resolve(w, r)
	if !ok {
		return
	}
	lessons, err := src.Lessons(r.Context(), queryMap(r))
	if err != nil {
		writeError(w, r, h.Logger, id, err)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	body, skipped := renderCalendar(id, lessons, now())
	if skipped > 0 {
		h.Logger.Warn("lessons without valid timestamps left out of calendar",
			slog.String("source", id),
			slog.Int("skipped", skipped),
		)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=timetable.ics")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// LegacyICS redirects the pre-registry calendar URL to its current location.
func (h *Handler) LegacyICS(w http.ResponseWriter, r *http.Request) {
	target := "/timetable/unicam/lessons.ics"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (string, source.Source, bool) {
	id := source.NormalizeID(chi.URLParam(r, "source"))
	src, ok := h.Registry.Lookup(id)
	if !ok {
		writeNotFound(w, id)
		return id, nil, false
	}
	return id, src, true
}
