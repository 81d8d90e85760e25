package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/unitimetable/timetable/internal/model"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// queryMap flattens the request query, keeping the first value of each key.
func queryMap(r *http.Request) map[string]string {
	values := r.URL.Query()
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// classifyError maps err to the boundary status and body. User faults are
// shown as they are; internal and external faults get generic text.
func classifyError(err error) (*model.Error, int, errorBody) {
	e := model.AsError(err)
	switch e.Fault {
	case model.FaultUser:
		return e, e.Status(), errorBody{Error: e.Title, Message: e.Message}
	case model.FaultExternal:
		return e, e.Status(), errorBody{Error: "Bad Gateway", Message: "An external service error occurred"}
	default:
		return e, e.Status(), errorBody{Error: "Internal Server Error", Message: "An internal error occurred"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, sourceID string, err error) {
	e, status, body := classifyError(err)
	if e.Fault != model.FaultUser {
		logger.LogAttrs(r.Context(), slog.LevelError, "source request failed",
			slog.String("source", sourceID),
			slog.String("fault", string(e.Fault)),
			slog.String("error", e.Title),
			slog.String("message", e.Message),
			slog.String("detail", e.Detail),
			slog.String("path", r.URL.Path),
		)
	}
	writeJSON(w, status, body)
}

func writeNotFound(w http.ResponseWriter, sourceID string) {
	writeJSON(w, http.StatusNotFound, errorBody{
		Error:   "Not Found",
		Message: "No crawler found for source '" + sourceID + "'",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
