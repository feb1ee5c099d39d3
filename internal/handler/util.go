package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chadn/ai-chatbot-meetings/internal/history"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// serviceStatus maps a session service error to an HTTP status.
func serviceStatus(err error) int {
	var formatErr *history.FormatError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnsupportedModel),
		errors.Is(err, service.ErrInvalidTimezone),
		errors.As(err, &formatErr):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// writeServiceError writes err with the status serviceStatus picks.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, serviceStatus(err), err.Error())
}

// queryInt reads a bounded integer query parameter.
func queryInt(r *http.Request, key string, fallback, lo, hi int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < lo || parsed > hi {
		return fallback
	}
	return parsed
}
