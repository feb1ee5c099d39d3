package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/middleware"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

// EventReader reads back published scheduling events.
type EventReader interface {
	Events(ctx context.Context, sessionID string, afterSequence uint64, limit int) (*model.ListEventsResponse, error)
}

// EventHandler serves a session's scheduling events.
type EventHandler struct {
	service *service.SessionService
	reader  EventReader
	logger  *logger.Logger
}

// NewEventHandler creates a new event handler. A nil reader reports the
// endpoint as unavailable.
func NewEventHandler(svc *service.SessionService, reader EventReader, log *logger.Logger) *EventHandler {
	return &EventHandler{
		service: svc,
		reader:  reader,
		logger:  log,
	}
}

// List handles GET /api/v1/sessions/{id}/events
// Supports ?after_sequence=N&limit=M.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.Get(ctx, middleware.GetOwner(ctx), id); err != nil {
		writeServiceError(w, err)
		return
	}
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream not configured")
		return
	}

	var afterSequence uint64
	if seq := r.URL.Query().Get("after_sequence"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}
	limit := queryInt(r, "limit", 50, 1, 100)

	resp, err := h.reader.Events(ctx, id, afterSequence, limit)
	if err != nil {
		h.logger.Error("failed to read events", zap.String("session_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
