package tools

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
)

// Dispatcher executes the tool calls of a model response. Tool failures
// never escape it; they come back as error results the model can read.
type Dispatcher struct {
	tools  map[string]Tool
	order  []string
	logger *logger.Logger
}

// NewDispatcher creates a dispatcher with the given tools registered.
func NewDispatcher(log *logger.Logger, tools ...Tool) *Dispatcher {
	if log == nil {
		log = logger.Global()
	}
	d := &Dispatcher{
		tools:  make(map[string]Tool),
		logger: log.Named("tools"),
	}
	for _, t := range tools {
		d.Register(t)
	}
	return d
}

// Register adds a tool, replacing any tool of the same name.
func (d *Dispatcher) Register(t Tool) {
	if _, exists := d.tools[t.Name()]; !exists {
		d.order = append(d.order, t.Name())
	}
	d.tools[t.Name()] = t
}

// Definitions returns the tool declarations in registration order.
func (d *Dispatcher) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(d.order))
	for _, name := range d.order {
		t := d.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute runs the requested tool calls sequentially, in request order, and
// returns one result per call.
func (d *Dispatcher) Execute(ctx context.Context, msg *model.AIMessage) []*model.ToolMessage {
	if msg == nil || len(msg.ToolCalls) == 0 {
		return []*model.ToolMessage{}
	}

	results := make([]*model.ToolMessage, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		content, err := d.run(ctx, call)

		status := model.ToolStatusSuccess
		if err != nil {
			status = model.ToolStatusError
			content = "Error " + err.Error()
			d.logger.Error("tool call failed",
				zap.String("tool", call.Name),
				zap.String("call_id", call.ID),
				zap.Error(err),
			)
		} else {
			d.logger.Debug("tool call completed",
				zap.String("tool", call.Name),
				zap.String("call_id", call.ID),
				zap.Int("result_len", len(content)),
			)
		}
		metrics.RecordToolCall(call.Name, status)

		results = append(results, &model.ToolMessage{
			Content:    content,
			ToolCallID: call.ID,
			Name:       call.Name,
			Status:     status,
		})
	}
	return results
}

func (d *Dispatcher) run(ctx context.Context, call model.ToolCall) (out string, err error) {
	t, ok := d.tools[call.Name]
	if !ok {
		return "", fmt.Errorf("calling unknown tool %q", call.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked",
				zap.String("tool", call.Name),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			out, err = "", fmt.Errorf("running %s: %v", call.Name, r)
		}
	}()

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return t.Execute(ctx, args)
}
