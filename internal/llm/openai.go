package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
)

// OpenAIClient is the OpenAI tool-calling client.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*openai.ClientConfig)

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		if baseURL != "" {
			cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// NewOpenAIClient creates a client bound to one model name.
func NewOpenAIClient(apiKey, modelName string, log *logger.Logger, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if log == nil {
		log = logger.Global()
	}

	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
		logger: log.Named("llm"),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Models returns available models.
func (c *OpenAIClient) Models() []string {
	return SupportedModels
}

// Model returns the model this client is bound to.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Chat sends a tool-calling chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	modelName := req.Model
	if modelName == "" {
		modelName = c.model
	}

	request := openai.ChatCompletionRequest{
		Model:    modelName,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
	}
	if isReasoningModel(modelName) {
		request.MaxCompletionTokens = req.MaxTokens
	} else {
		request.MaxTokens = req.MaxTokens
		request.Temperature = float32(req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		metrics.RecordLLMRequest(modelName, "error", time.Since(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		metrics.RecordLLMRequest(modelName, "error", time.Since(start).Seconds(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	msg := &model.AIMessage{
		Content:   choice.Message.Content,
		ToolCalls: c.fromOpenAIToolCalls(choice.Message.ToolCalls),
	}

	metrics.RecordLLMRequest(modelName, "success", time.Since(start).Seconds(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &ChatResponse{
		Message:    msg,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: string(choice.FinishReason),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func isReasoningModel(name string) bool {
	return strings.HasPrefix(name, "o")
}

// toOpenAIMessages maps history to OpenAI roles. Generic messages have no
// OpenAI role and are not sent.
func toOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		switch m := msg.(type) {
		case *model.SystemMessage:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: m.Content})
		case *model.HumanMessage:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case *model.AIMessage:
			out = append(out, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   m.Content,
				ToolCalls: toOpenAIToolCalls(m.ToolCalls),
			})
		case *model.ToolMessage:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

func toOpenAIToolCalls(calls []model.ToolCall) []openai.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]openai.ToolCall, 0, len(calls))
	for _, call := range calls {
		args, err := json.Marshal(call.Arguments)
		if err != nil || call.Arguments == nil {
			args = []byte("{}")
		}
		out = append(out, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	return out
}

func toOpenAITools(defs []ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// fromOpenAIToolCalls decodes requested tool calls. Undecodable arguments
// become an empty map so the tool reports the missing inputs itself.
func (c *OpenAIClient) fromOpenAIToolCalls(calls []openai.ToolCall) []model.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]model.ToolCall, 0, len(calls))
	for _, call := range calls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				c.logger.Warn("undecodable tool arguments",
					zap.String("tool", call.Function.Name),
					zap.String("arguments", call.Function.Arguments),
					zap.Error(err),
				)
				args = map[string]any{}
			}
		}
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out = append(out, model.ToolCall{ID: id, Name: call.Function.Name, Arguments: args})
	}
	return out
}

// NewOpenAIFactory returns a Factory building OpenAI clients that share one
// key and endpoint.
func NewOpenAIFactory(apiKey, baseURL string, log *logger.Logger) Factory {
	return func(modelName string) (Client, error) {
		return NewOpenAIClient(apiKey, modelName, log, WithBaseURL(baseURL))
	}
}
