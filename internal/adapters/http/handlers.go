package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"routines/internal/application/orchestrators"
	"routines/internal/domain/exercise"
	"routines/internal/domain/routine"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderNotes converts markdown notes to HTML. Empty notes stay empty.
func renderNotes(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// validationErrors are reported to the client verbatim as 400s.
var validationErrors = []error{
	routine.ErrEmptyName,
	routine.ErrNameTooLong,
	routine.ErrEmptyGroupName,
	routine.ErrGroupNameTooLong,
	routine.ErrNilItem,
	exercise.ErrEmptyName,
	exercise.ErrNameTooLong,
	exercise.ErrNotesTooLong,
	exercise.ErrNegativeSets,
	exercise.ErrNegativeReps,
	exercise.ErrMissingSource,
}

// writeError maps domain and orchestrator errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routine.ErrRoutineNotFound), errors.Is(err, orchestrators.ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, routine.ErrVersionConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		for _, v := range validationErrors {
			if errors.Is(err, v) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		internalError(w, err)
	}
}

// parseDay parses an optional YYYY-MM-DD day. Empty means unscheduled.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
