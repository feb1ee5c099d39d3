package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/middleware"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc *service.SessionService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service: svc,
		logger:  log,
	}
}

// StreamWithMessage handles POST /api/v1/sessions/{id}/stream
// It runs one turn and streams every message appended to the history, then
// a done event carrying the reply.
func (h *StreamHandler) StreamWithMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := middleware.GetOwner(ctx)

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Get(ctx, owner, id); err != nil {
		writeServiceError(w, err)
		return
	}

	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	resp, err := h.service.SendWithProgress(ctx, owner, id, content, func(msg model.Message) {
		if ctx.Err() != nil {
			return
		}
		if err := sendSSEEvent(w, flusher, "message", model.NewStreamMessageEvent(msg)); err != nil {
			h.logger.Warn("failed to write SSE event", zap.String("event", "message"), zap.Error(err))
		}
	})
	if err != nil {
		h.logger.Error("streamed turn failed", zap.String("session_id", id), zap.Error(err))
		if err := sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "turn_error",
			Message: err.Error(),
		}); err != nil {
			h.logger.Warn("failed to write SSE event", zap.String("event", "error"), zap.Error(err))
		}
		return
	}

	if err := sendSSEEvent(w, flusher, "done", resp.Reply); err != nil {
		h.logger.Warn("failed to write SSE event", zap.String("event", "done"), zap.Error(err))
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
