// Package model defines data structures for the scheduling assistant.
package model

import (
	"time"
)

// Role is the type tag of a conversation message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Tool result statuses.
const (
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// Message is one turn in a conversation. The concrete types are
// *SystemMessage, *HumanMessage, *AIMessage, *ToolMessage and
// *GenericMessage; each carries only the fields valid for its role.
type Message interface {
	Role() Role
	Text() string
	CreatedAt() time.Time
	// EnsureCreatedAt sets the creation time if it is still zero.
	EnsureCreatedAt(now time.Time)
	isMessage()
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"args"`
}

// SystemMessage carries instructions for the model.
type SystemMessage struct {
	Content string
	Created time.Time
}

// HumanMessage is text typed by the user.
type HumanMessage struct {
	Content string
	Created time.Time
}

// AIMessage is one model response. Content may be empty when the response
// only requests tools.
type AIMessage struct {
	Content   string
	ToolCalls []ToolCall
	Created   time.Time
}

// ToolMessage is the result of executing one tool call.
type ToolMessage struct {
	Content    string
	ToolCallID string
	Name       string
	Status     string
	Created    time.Time
}

// GenericMessage keeps a message whose type tag is not known to this version.
type GenericMessage struct {
	Type    string
	Content string
	Created time.Time
}

func (m *SystemMessage) Role() Role           { return RoleSystem }
func (m *SystemMessage) Text() string         { return m.Content }
func (m *SystemMessage) CreatedAt() time.Time { return m.Created }
func (m *SystemMessage) EnsureCreatedAt(now time.Time) {
	if m.Created.IsZero() {
		m.Created = now
	}
}
func (*SystemMessage) isMessage() {}

func (m *HumanMessage) Role() Role           { return RoleHuman }
func (m *HumanMessage) Text() string         { return m.Content }
func (m *HumanMessage) CreatedAt() time.Time { return m.Created }
func (m *HumanMessage) EnsureCreatedAt(now time.Time) {
	if m.Created.IsZero() {
		m.Created = now
	}
}
func (*HumanMessage) isMessage() {}

func (m *AIMessage) Role() Role           { return RoleAI }
func (m *AIMessage) Text() string         { return m.Content }
func (m *AIMessage) CreatedAt() time.Time { return m.Created }
func (m *AIMessage) EnsureCreatedAt(now time.Time) {
	if m.Created.IsZero() {
		m.Created = now
	}
}
func (*AIMessage) isMessage() {}

// HasToolCalls reports whether the response requests at least one tool.
func (m *AIMessage) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// WithoutToolCalls returns a copy of m that requests no tools.
func (m *AIMessage) WithoutToolCalls() *AIMessage {
	return &AIMessage{Content: m.Content, Created: m.Created}
}

func (m *ToolMessage) Role() Role           { return RoleTool }
func (m *ToolMessage) Text() string         { return m.Content }
func (m *ToolMessage) CreatedAt() time.Time { return m.Created }
func (m *ToolMessage) EnsureCreatedAt(now time.Time) {
	if m.Created.IsZero() {
		m.Created = now
	}
}
func (*ToolMessage) isMessage() {}

// Failed reports whether the tool reported an error.
func (m *ToolMessage) Failed() bool { return m.Status == ToolStatusError }

func (m *GenericMessage) Role() Role           { return Role(m.Type) }
func (m *GenericMessage) Text() string         { return m.Content }
func (m *GenericMessage) CreatedAt() time.Time { return m.Created }
func (m *GenericMessage) EnsureCreatedAt(now time.Time) {
	if m.Created.IsZero() {
		m.Created = now
	}
}
func (*GenericMessage) isMessage() {}

// DisplayMessage is the rendering view of a human or ai message.
type DisplayMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToDisplay converts a message into its rendering view.
func ToDisplay(m Message) DisplayMessage {
	return DisplayMessage{
		Role:      m.Role(),
		Content:   m.Text(),
		CreatedAt: m.CreatedAt(),
	}
}
