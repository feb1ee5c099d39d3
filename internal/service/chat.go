package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/history"
	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/tools"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
	"github.com/chadn/ai-chatbot-meetings/pkg/tracing"
)

// ChatConfig holds the settings of one conversation.
type ChatConfig struct {
	ModelName     string
	MaxTokens     int
	Temperature   float64
	Timezone      string
	AttendeeName  string
	AttendeeEmail string
	MaxToolTurns  int
}

// DefaultChatConfig returns the default conversation settings.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		ModelName:     llm.DefaultModel,
		MaxTokens:     1024,
		Temperature:   0,
		Timezone:      "America/Los_Angeles",
		AttendeeName:  "Chad Dev",
		AttendeeEmail: "dev@chadnorwood.com",
		MaxToolTurns:  3,
	}
}

// ToolDispatcher declares tools to the model and executes its tool calls.
type ToolDispatcher interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, msg *model.AIMessage) []*model.ToolMessage
}

// EventPublisher publishes scheduling events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.SchedulingEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// PublishEvent implements EventPublisher.
func (NopPublisher) PublishEvent(context.Context, *model.SchedulingEvent) error { return nil }

// ChatService drives the model/tool loop for one conversation history.
type ChatService struct {
	cfg        ChatConfig
	dispatcher ToolDispatcher
	factory    llm.Factory
	publisher  EventPublisher
	sessionID  string
	logger     *logger.Logger
	now        func() time.Time

	mu      sync.Mutex
	history *history.Store
	models  map[string]llm.Client
}

// ChatOption configures a ChatService.
type ChatOption func(*ChatService)

// WithPublisher sets the scheduling event publisher.
func WithPublisher(p EventPublisher) ChatOption {
	return func(s *ChatService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSessionID tags published events and logs with a session id.
func WithSessionID(id string) ChatOption {
	return func(s *ChatService) { s.sessionID = id }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) ChatOption {
	return func(s *ChatService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewChatService creates a chat service over h. The system prompt is not
// added; call Reset or SetHistory for that.
func NewChatService(cfg ChatConfig, h *history.Store, dispatcher ToolDispatcher, factory llm.Factory, opts ...ChatOption) *ChatService {
	if cfg.ModelName == "" {
		cfg.ModelName = llm.DefaultModel
	}
	if cfg.MaxToolTurns < 0 {
		cfg.MaxToolTurns = 0
	}
	s := &ChatService{
		cfg:        cfg,
		dispatcher: dispatcher,
		factory:    factory,
		publisher:  NopPublisher{},
		logger:     logger.NewNop(),
		now:        time.Now,
		history:    h,
		models:     make(map[string]llm.Client),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SystemPrompt builds the instructions for the model with today's date.
func (s *ChatService) SystemPrompt() string {
	today := s.now().Format("2006-01-02 Monday")
	prompt := fmt.Sprintf(`
		Today is %s and the conversation is in the timezone %s.

		You are a helpful assistant capable of using external tool functions autonomously.
		Tool responses will appear in this conversation as messages from "tool".
		Use these responses to help the user as naturally and efficiently as possible.

		You have access to calendar management tools via the Cal.com API.

		Tasks and Instructions:

		1. Booking a Meeting

		When the user requests to book a meeting:
		- Ask what day(s) they prefer if they haven't already provided them.
		- Use the %s tool to retrieve available times.
		- Present the user with options including:
		  - Date of the meeting, confirmed in this format: <YYYY-MM-DD DAY>
		  - Preferred times for each date, in 12 hour format: <HH:MM AM/PM>
		- Ask for the reason for the meeting.
		- Confirm the attendee's name and email.
		  - Use default values of:
		    - Name: %s
		    - Email: %s
		- Once all details are collected, use the %s tool to schedule the meeting,
		  passing the start time in the conversation timezone and the event_type_id
		  of the chosen slot.

		2. Viewing Scheduled Events

		If the user wants to see their scheduled events:
		- Ask for their email address.
		- Use the %s tool to retrieve the events.

		3. Checking Availability

		If the user asks for availability on a specific date:
		- Use the %s tool with the provided date.
		- Present available time slots for that day.

		Conversational Guidelines:
		- Keep the conversation natural and friendly.
		- Ask for one piece of information at a time.
		- Store and reuse user-provided information during the session.
		- Respond clearly and helpfully using the data returned by tools.
		`,
		today, s.cfg.Timezone,
		tools.NameCheckAvailability,
		s.cfg.AttendeeName, s.cfg.AttendeeEmail,
		tools.NameBookMeeting,
		tools.NameScheduledBookings,
		tools.NameCheckAvailability,
	)
	return strings.Join(strings.Fields(prompt), " ")
}

// History returns the history the service appends to.
func (s *ChatService) History() *history.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// SetHistory switches to h and, unless skipSystem is set, appends a fresh
// system prompt to it.
func (s *ChatService) SetHistory(h *history.Store, skipSystem bool) {
	s.mu.Lock()
	s.history = h
	s.mu.Unlock()

	if !skipSystem {
		h.AddSystem(s.SystemPrompt())
	}
}

// Reset clears the history and starts over with a new system prompt.
func (s *ChatService) Reset() {
	h := s.History()
	h.Clear()
	h.AddSystem(s.SystemPrompt())
}

// ModelName returns the active model name.
func (s *ChatService) ModelName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ModelName
}

// SetModelName switches the active model. A cached client for the new name
// is dropped and rebuilt on next use; clients for other names stay cached.
func (s *ChatService) SetModelName(name string) error {
	if name == "" {
		return errors.New("model name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != s.cfg.ModelName {
		delete(s.models, name)
	}
	s.cfg.ModelName = name
	return nil
}

// Model returns the client for the active model name, building it on
// first use.
func (s *ChatService) Model() (llm.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.cfg.ModelName
	if client, ok := s.models[name]; ok {
		return client, nil
	}
	client, err := s.factory(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client %q: %w", name, err)
	}
	s.models[name] = client
	s.logger.Info("model client created", zap.String("model", name))
	return client, nil
}

// Respond runs one user turn and returns the final ai message. An empty
// content replays the existing history without adding a human message.
func (s *ChatService) Respond(ctx context.Context, content string) (*model.AIMessage, error) {
	return s.RespondWithProgress(ctx, content, nil)
}

// RespondWithProgress is Respond with a callback invoked after each message
// is appended to the history.
//
// The model is invoked at most MaxToolTurns+1 times. When the last allowed
// invocation still requests tools, those calls are dropped and the message
// is kept as the answer.
func (s *ChatService) RespondWithProgress(ctx context.Context, content string, onAppend func(model.Message)) (*model.AIMessage, error) {
	ctx, span := tracing.Tracer().Start(ctx, "chat.turn")
	defer span.End()

	h := s.History()
	appendMsg := func(msg model.Message) error {
		if err := h.Append(msg); err != nil {
			return err
		}
		if onAppend != nil {
			onAppend(msg)
		}
		return nil
	}

	client, err := s.Model()
	if err != nil {
		return nil, s.failTurn(ctx, span, 0, err)
	}
	modelName := s.ModelName()
	span.SetAttributes(attribute.String("llm.model", modelName))

	if content != "" {
		if err := appendMsg(&model.HumanMessage{Content: content}); err != nil {
			return nil, s.failTurn(ctx, span, 0, err)
		}
	}

	definitions := s.dispatcher.Definitions()
	remaining := s.cfg.MaxToolTurns
	toolTurns := 0

	var final *model.AIMessage
	for {
		resp, err := client.Chat(ctx, &llm.ChatRequest{
			Model:       modelName,
			Messages:    h.Messages(),
			Tools:       definitions,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		})
		if err != nil {
			return nil, s.failTurn(ctx, span, toolTurns, fmt.Errorf("model invocation failed: %w", err))
		}
		if resp == nil || resp.Message == nil {
			return nil, s.failTurn(ctx, span, toolTurns, errors.New("model returned no message"))
		}
		final = resp.Message

		if remaining == 0 {
			break
		}

		results := s.dispatcher.Execute(ctx, final)
		if len(results) == 0 {
			break
		}

		if err := appendMsg(final); err != nil {
			return nil, s.failTurn(ctx, span, toolTurns, err)
		}
		for _, result := range results {
			if err := appendMsg(result); err != nil {
				return nil, s.failTurn(ctx, span, toolTurns, err)
			}
			s.publishToolResult(ctx, result)
		}

		remaining--
		toolTurns++
	}

	if final.HasToolCalls() {
		s.logger.Warn("tool turn limit reached, dropping pending tool calls",
			zap.String("session_id", s.sessionID),
			zap.Int("max_tool_turns", s.cfg.MaxToolTurns),
			zap.Int("dropped", len(final.ToolCalls)),
		)
		final = final.WithoutToolCalls()
	}

	if err := appendMsg(final); err != nil {
		return nil, s.failTurn(ctx, span, toolTurns, err)
	}

	metrics.RecordTurn("success", toolTurns)
	span.SetAttributes(attribute.Int("chat.tool_turns", toolTurns))
	s.publish(ctx, model.EventTypeTurnCompleted, "", map[string]any{
		"tool_turns": toolTurns,
		"model":      modelName,
	})

	return final, nil
}

func (s *ChatService) failTurn(ctx context.Context, span trace.Span, toolTurns int, err error) error {
	metrics.RecordTurn("error", toolTurns)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("chat turn failed", zap.String("session_id", s.sessionID), zap.Error(err))
	s.publish(ctx, model.EventTypeTurnFailed, err.Error(), nil)
	return err
}

func (s *ChatService) publishToolResult(ctx context.Context, result *model.ToolMessage) {
	switch {
	case result.Failed():
		s.publish(ctx, model.EventTypeToolError, result.Content, map[string]any{"tool": result.Name})
	case result.Name == tools.NameBookMeeting:
		s.publish(ctx, model.EventTypeBookingCreated, "", map[string]any{"tool_call_id": result.ToolCallID})
	}
}

func (s *ChatService) publish(ctx context.Context, eventType model.EventType, reason string, metadata map[string]any) {
	event := &model.SchedulingEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: s.sessionID,
		Type:      eventType,
		Reason:    reason,
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
