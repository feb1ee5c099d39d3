package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

type stubTool struct {
	name string
	run  func(args map[string]any) (string, error)
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub " + s.name }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(_ context.Context, args map[string]any) (string, error) {
	return s.run(args)
}

func TestDispatcherDefinitionsKeepRegistrationOrder(t *testing.T) {
	d := NewDispatcher(nil, NewCalendarTools(newFakeBackend(), 0)...)

	defs := d.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, NameCheckAvailability, defs[0].Name)
	assert.Equal(t, NameBookMeeting, defs[1].Name)
	assert.Equal(t, NameScheduledBookings, defs[2].Name)
	for _, def := range defs {
		assert.True(t, json.Valid(def.Parameters), def.Name)
	}
}

func TestDispatcherExecutesInOrder(t *testing.T) {
	var order []string
	echo := &stubTool{name: "echo", run: func(args map[string]any) (string, error) {
		order = append(order, fmt.Sprint(args["v"]))
		return fmt.Sprint(args["v"]), nil
	}}
	d := NewDispatcher(nil, echo)

	results := d.Execute(context.Background(), &model.AIMessage{ToolCalls: []model.ToolCall{
		{ID: "a", Name: "echo", Arguments: map[string]any{"v": "first"}},
		{ID: "b", Name: "echo", Arguments: map[string]any{"v": "second"}},
	}})

	require.Len(t, results, 2)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, "a", results[0].ToolCallID)
	assert.Equal(t, "first", results[0].Content)
	assert.Equal(t, model.ToolStatusSuccess, results[0].Status)
	assert.Equal(t, "b", results[1].ToolCallID)
	assert.Equal(t, "echo", results[1].Name)
}

func TestDispatcherContainsFailures(t *testing.T) {
	d := NewDispatcher(nil,
		&stubTool{name: "fails", run: func(map[string]any) (string, error) {
			return "", errors.New("checking availability: boom")
		}},
		&stubTool{name: "panics", run: func(map[string]any) (string, error) {
			panic("nil map")
		}},
	)

	results := d.Execute(context.Background(), &model.AIMessage{ToolCalls: []model.ToolCall{
		{ID: "1", Name: "fails"},
		{ID: "2", Name: "panics"},
		{ID: "3", Name: "missing"},
	}})

	require.Len(t, results, 3)
	assert.Equal(t, "Error checking availability: boom", results[0].Content)
	for _, r := range results {
		assert.True(t, strings.HasPrefix(r.Content, "Error "), r.Content)
		assert.Equal(t, model.ToolStatusError, r.Status)
		assert.True(t, r.Failed())
	}
	assert.Contains(t, results[1].Content, "nil map")
	assert.Contains(t, results[2].Content, `unknown tool "missing"`)
}

func TestDispatcherNoCalls(t *testing.T) {
	d := NewDispatcher(nil)
	assert.Empty(t, d.Execute(context.Background(), &model.AIMessage{Content: "done"}))
	assert.Empty(t, d.Execute(context.Background(), nil))
}

func TestBookingRejectedByProviderBecomesErrorResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"error","error":{"message":"no available users found"}}`)
	}))
	defer server.Close()

	client := calendar.NewClient(calendar.Config{
		APIKey:   "k",
		BaseURL:  server.URL,
		Timezone: "America/Los_Angeles",
	}, nil)
	d := NewDispatcher(nil, NewCalendarTools(client, 0)...)

	results := d.Execute(context.Background(), &model.AIMessage{ToolCalls: []model.ToolCall{{
		ID:   "call_1",
		Name: NameBookMeeting,
		Arguments: map[string]any{
			"start_time":    "2025-06-02T09:00:00",
			"name":          "Chad Dev",
			"email":         "dev@example.com",
			"event_type_id": float64(1),
		},
	}}})

	require.Len(t, results, 1)
	assert.True(t, strings.HasPrefix(results[0].Content, "Error booking meeting: "), results[0].Content)
	assert.Contains(t, results[0].Content, "no available users found")
	assert.Equal(t, "call_1", results[0].ToolCallID)
}

func TestDispatcherLogsToGlobalWithoutLogger(t *testing.T) {
	prev := logger.Global()
	t.Cleanup(func() { logger.SetGlobal(prev) })

	core, logs := observer.New(zap.ErrorLevel)
	logger.SetGlobal(&logger.Logger{Logger: zap.New(core)})

	broken := &stubTool{name: "broken", run: func(map[string]any) (string, error) {
		return "", errors.New("boom")
	}}
	d := NewDispatcher(nil, broken)
	results := d.Execute(context.Background(), &model.AIMessage{ToolCalls: []model.ToolCall{{ID: "x", Name: "broken"}}})

	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())

	entries := logs.FilterMessage("tool call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["tool"])
}
