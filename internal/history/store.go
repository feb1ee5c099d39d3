// Package history keeps the ordered message log of one conversation.
package history

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
)

// ErrOrphanToolMessage is returned when a tool message answers a call id
// that no earlier ai message issued.
var ErrOrphanToolMessage = errors.New("tool message without a matching tool call")

// Store is an append-only message log. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages []model.Message
	issued   map[string]struct{}
	now      func() time.Time
}

// NewStore creates an empty history.
func NewStore() *Store {
	return &Store{
		issued: make(map[string]struct{}),
		now:    time.Now,
	}
}

// Append adds a message, setting its creation time if it has none.
func (s *Store) Append(msg model.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tm, ok := msg.(*model.ToolMessage); ok {
		if _, ok := s.issued[tm.ToolCallID]; !ok {
			return fmt.Errorf("%w: %q", ErrOrphanToolMessage, tm.ToolCallID)
		}
	}

	msg.EnsureCreatedAt(s.now())
	s.messages = append(s.messages, msg)
	if am, ok := msg.(*model.AIMessage); ok {
		for _, call := range am.ToolCalls {
			s.issued[call.ID] = struct{}{}
		}
	}

	metrics.MessagesTotal.WithLabelValues(string(msg.Role())).Inc()
	return nil
}

// AddSystem appends a system message.
func (s *Store) AddSystem(content string) {
	_ = s.Append(&model.SystemMessage{Content: content})
}

// AddHuman appends a human message.
func (s *Store) AddHuman(content string) {
	_ = s.Append(&model.HumanMessage{Content: content})
}

// AddAI appends a model response.
func (s *Store) AddAI(msg *model.AIMessage) error {
	return s.Append(msg)
}

// AddTool appends a tool result.
func (s *Store) AddTool(msg *model.ToolMessage) error {
	return s.Append(msg)
}

// Messages returns a copy of the log.
func (s *Store) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the newest message, or nil.
func (s *Store) Last() model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.messages) == 0 {
		return nil
	}
	return s.messages[len(s.messages)-1]
}

// Clear removes every message.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.issued = make(map[string]struct{})
}

// FilteredForDisplay yields the human and ai messages that have content, in
// order. Each iteration reads a fresh snapshot.
func (s *Store) FilteredForDisplay() iter.Seq[model.Message] {
	return func(yield func(model.Message) bool) {
		for _, msg := range s.Messages() {
			if !displayable(msg) {
				continue
			}
			if !yield(msg) {
				return
			}
		}
	}
}

func displayable(msg model.Message) bool {
	switch msg.(type) {
	case *model.HumanMessage, *model.AIMessage:
		return msg.Text() != ""
	default:
		return false
	}
}

// replace swaps in a validated log.
func (s *Store) replace(messages []model.Message, issued map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = messages
	s.issued = issued
}
