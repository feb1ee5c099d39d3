// Package llm provides the tool-calling model client.
package llm

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/chadn/ai-chatbot-meetings/internal/model"
)

// ToolDefinition declares one callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ChatRequest is one model invocation over a full history.
type ChatRequest struct {
	Model       string
	Messages    []model.Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the model reply.
type ChatResponse struct {
	Message    *model.AIMessage
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for tool-calling model providers.
type Client interface {
	// Chat sends the history and tool declarations and returns one ai message.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4.1-mini"

// SupportedModels lists the models the assistant accepts.
var SupportedModels = []string{
	"gpt-4.1-mini",
	"gpt-4.1-nano",
	"gpt-4.1",
	"o4-mini",
	"o3",
}

// IsSupported reports whether name is an accepted model.
func IsSupported(name string) bool {
	return slices.Contains(SupportedModels, name)
}

// Factory builds a client for one model name.
type Factory func(modelName string) (Client, error)
