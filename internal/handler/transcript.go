package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/middleware"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

// MaxTranscriptBytes bounds an uploaded transcript.
const MaxTranscriptBytes = 5 << 20

// TranscriptHandler handles transcript download and upload.
type TranscriptHandler struct {
	service *service.SessionService
	logger  *logger.Logger
	now     func() time.Time
}

// NewTranscriptHandler creates a new transcript handler.
func NewTranscriptHandler(svc *service.SessionService, log *logger.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		service: svc,
		logger:  log,
		now:     time.Now,
	}
}

// TranscriptFilename names a downloaded transcript.
func TranscriptFilename(now time.Time) string {
	return fmt.Sprintf("ai_messages_%s_%d.json", now.Format("2006-01-02"), now.Unix())
}

// Export handles GET /api/v1/sessions/{id}/transcript
func (h *TranscriptHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	data, err := h.service.Export(r.Context(), middleware.GetOwner(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, TranscriptFilename(h.now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles PUT /api/v1/sessions/{id}/transcript
func (h *TranscriptHandler) Import(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxTranscriptBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "transcript too large")
		return
	}

	n, err := h.service.Import(r.Context(), middleware.GetOwner(r.Context()), id, data)
	if err != nil {
		h.logger.Warn("transcript rejected", zap.String("session_id", id), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.ImportTranscriptResponse{Imported: n})
}
