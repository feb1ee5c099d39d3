package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/middleware"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.SessionService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/sessions/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Messages(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeContent reads and validates a SendMessageRequest body.
func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return req.Content, true
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Send(r.Context(), middleware.GetOwner(r.Context()), id, content)
	if err != nil {
		h.logger.Error("failed to send message", zap.String("session_id", id), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
