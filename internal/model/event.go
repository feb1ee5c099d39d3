package model

import (
	"time"
)

// EventType represents the type of scheduling event.
type EventType string

const (
	EventTypeBookingCreated EventType = "booking_created"
	EventTypeToolError      EventType = "tool_error"
	EventTypeTurnCompleted  EventType = "turn_completed"
	EventTypeTurnFailed     EventType = "turn_failed"
)

// SchedulingEvent is published when something noteworthy happens in a session.
type SchedulingEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Sequence  uint64         `json:"sequence,omitempty"`
}

// ListEventsResponse is the response for reading a session's events.
type ListEventsResponse struct {
	Events       []SchedulingEvent `json:"events"`
	LastSequence uint64            `json:"last_sequence"`
	HasMore      bool              `json:"has_more"`
}

// StreamMessageEvent carries one appended history message over SSE.
type StreamMessageEvent struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Status     string     `json:"status,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewStreamMessageEvent converts a history message for streaming.
func NewStreamMessageEvent(m Message) StreamMessageEvent {
	ev := StreamMessageEvent{
		Role:      m.Role(),
		Content:   m.Text(),
		CreatedAt: m.CreatedAt(),
	}
	switch v := m.(type) {
	case *AIMessage:
		ev.ToolCalls = v.ToolCalls
	case *ToolMessage:
		ev.ToolCallID = v.ToolCallID
		ev.Status = v.Status
	}
	return ev
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
