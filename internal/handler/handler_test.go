package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/middleware"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

type replyModel struct {
	reply string
	err   error
}

func (m *replyModel) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &llm.ChatResponse{Message: &model.AIMessage{Content: m.reply}, Model: req.Model}, nil
}

func (m *replyModel) Name() string     { return "reply" }
func (m *replyModel) Models() []string { return llm.SupportedModels }

type fakeEvents struct {
	sessionID string
	after     uint64
}

func (f *fakeEvents) Events(_ context.Context, sessionID string, after uint64, limit int) (*model.ListEventsResponse, error) {
	f.sessionID, f.after = sessionID, after
	return &model.ListEventsResponse{
		Events:       []model.SchedulingEvent{{ID: "e1", SessionID: sessionID, Type: model.EventTypeTurnCompleted, Sequence: after + 1}},
		LastSequence: after + 1,
	}, nil
}

type failingPing struct{}

func (failingPing) Ping(context.Context) error { return errors.New("down") }

func newTestRouter(t *testing.T, m llm.Client, events EventReader) http.Handler {
	t.Helper()
	log := logger.NewNop()
	svc := service.NewSessionService(service.SessionConfig{
		Chat:     service.DefaultChatConfig(),
		Calendar: calendar.Config{APIKey: "test", BaseURL: "http://127.0.0.1:1"},
	}, func(string) (llm.Client, error) { return m, nil }, nil, log)

	sessions := NewSessionHandler(svc, log)
	messages := NewMessageHandler(svc, log)
	stream := NewStreamHandler(svc, log)
	transcripts := NewTranscriptHandler(svc, log)
	transcripts.now = func() time.Time { return time.Unix(1748822400, 0).UTC() }
	eventHandler := NewEventHandler(svc, events, log)

	r := chi.NewRouter()
	r.Use(middleware.Auth(""))
	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", sessions.Create)
		r.Get("/", sessions.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Delete("/", sessions.Delete)
			r.Put("/model", sessions.SetModel)
			r.Post("/reset", sessions.Reset)
			r.Get("/messages", messages.List)
			r.Post("/messages", messages.Send)
			r.Post("/stream", stream.StreamWithMessage)
			r.Get("/transcript", transcripts.Export)
			r.Put("/transcript", transcripts.Import)
			r.Get("/events", eventHandler.List)
		})
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) model.Session {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/sessions", `{"timezone":"America/Chicago"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestRouter(t, &replyModel{reply: "hi"}, nil)
	sess := createSession(t, h)

	assert.Equal(t, middleware.AnonymousOwner, sess.Owner)
	assert.Equal(t, "America/Chicago", sess.Timezone)

	rec := do(t, h, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.ListSessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rec = do(t, h, http.MethodPut, "/api/v1/sessions/"+sess.ID+"/model", `{"model":"gpt-4.1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"model":"gpt-4.1"`)

	rec = do(t, h, http.MethodDelete, "/api/v1/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/sessions/"+sess.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionValidation(t *testing.T) {
	h := newTestRouter(t, &replyModel{}, nil)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/sessions", `{"model":"gpt-2"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/sessions", `{"timezone":"Moon/Base"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/sessions", `{`).Code)
	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/sessions", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/sessions/not-a-uuid", "").Code)
}

func TestSendMessage(t *testing.T) {
	h := newTestRouter(t, &replyModel{reply: "What day works for you?"}, nil)
	sess := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", `{"content":"book a meeting"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "What day works for you?", resp.Reply.Content)

	rec = do(t, h, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/messages", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs model.ListMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs.Messages, 2)
	assert.Equal(t, model.RoleHuman, msgs.Messages[0].Role)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", `{"content":""}`).Code)
}

func TestSendMessageModelFailure(t *testing.T) {
	h := newTestRouter(t, &replyModel{err: errors.New("upstream unavailable")}, nil)
	sess := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/messages", `{"content":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "upstream unavailable")
}

func TestStreamWithMessage(t *testing.T) {
	h := newTestRouter(t, &replyModel{reply: "Sure."}, nil)
	sess := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/stream", `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	assert.Equal(t, []string{"message", "message", "done"}, events)
	assert.Contains(t, rec.Body.String(), `"content":"Sure."`)
}

// droppedClient accepts headers but fails every body write.
type droppedClient struct {
	*httptest.ResponseRecorder
}

func (droppedClient) Write([]byte) (int, error) { return 0, errors.New("client gone") }

func TestStreamLogsFailedWrites(t *testing.T) {
	for name, m := range map[string]*replyModel{
		"done":  {reply: "Sure."},
		"error": {err: errors.New("model down")},
	} {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			log := &logger.Logger{Logger: zap.New(core)}
			svc := service.NewSessionService(service.SessionConfig{
				Chat:     service.DefaultChatConfig(),
				Calendar: calendar.Config{APIKey: "test", BaseURL: "http://127.0.0.1:1"},
			}, func(string) (llm.Client, error) { return m, nil }, nil, logger.NewNop())
			sess, err := svc.Create(context.Background(), middleware.AnonymousOwner, nil)
			require.NoError(t, err)

			r := chi.NewRouter()
			r.Use(middleware.Auth(""))
			r.Post("/sessions/{id}/stream", NewStreamHandler(svc, log).StreamWithMessage)

			req := httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/stream", strings.NewReader(`{"content":"hello"}`))
			r.ServeHTTP(droppedClient{httptest.NewRecorder()}, req)

			var failed []string
			for _, entry := range logs.FilterMessage("failed to write SSE event").All() {
				failed = append(failed, entry.ContextMap()["event"].(string))
			}
			assert.Contains(t, failed, name)
		})
	}
}

func TestTranscriptExportImport(t *testing.T) {
	h := newTestRouter(t, &replyModel{reply: "Booked."}, nil)
	src := createSession(t, h)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/sessions/"+src.ID+"/messages", `{"content":"book it"}`).Code)

	rec := do(t, h, http.MethodGet, "/api/v1/sessions/"+src.ID+"/transcript", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="ai_messages_2025-06-02_1748822400.json"`, rec.Header().Get("Content-Disposition"))
	transcript := rec.Body.String()

	dst := createSession(t, h)
	rec = do(t, h, http.MethodPut, "/api/v1/sessions/"+dst.ID+"/transcript", transcript)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"imported":3}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/v1/sessions/"+dst.ID+"/transcript", `[{"missing":"fields"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvents(t *testing.T) {
	events := &fakeEvents{}
	h := newTestRouter(t, &replyModel{}, events)
	sess := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/v1/sessions/"+sess.ID+"/events?after_sequence=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sess.ID, events.sessionID)
	assert.Equal(t, uint64(4), events.after)
	assert.Contains(t, rec.Body.String(), `"last_sequence":5`)

	unconfigured := newTestRouter(t, &replyModel{}, nil)
	other := createSession(t, unconfigured)
	rec = do(t, unconfigured, http.MethodGet, "/api/v1/sessions/"+other.ID+"/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	healthy := NewHealthHandler(map[string]Pinger{"nats": nil})
	rec := httptest.NewRecorder()
	healthy.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(map[string]Pinger{"nats": failingPing{}})
	rec = httptest.NewRecorder()
	down.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "nats: down")

	rec = httptest.NewRecorder()
	down.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
