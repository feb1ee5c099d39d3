package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/timeconv"
)

// FormatError reports a transcript that cannot be imported. Record is the
// zero-based index of the offending record, or -1 for the whole payload.
type FormatError struct {
	Record int
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid transcript"
	if e.Record >= 0 {
		msg += fmt.Sprintf(": record %d", e.Record)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

type record struct {
	Type       string           `json:"type"`
	Content    string           `json:"content"`
	Timestamp  string           `json:"timestamp"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Status     string           `json:"status,omitempty"`
}

// Export serializes the log as an indented JSON array of records.
func (s *Store) Export() ([]byte, error) {
	messages := s.Messages()
	records := make([]record, 0, len(messages))
	for _, msg := range messages {
		rec := record{
			Type:      string(msg.Role()),
			Content:   msg.Text(),
			Timestamp: msg.CreatedAt().Format(time.RFC3339Nano),
		}
		switch m := msg.(type) {
		case *model.AIMessage:
			rec.ToolCalls = m.ToolCalls
		case *model.ToolMessage:
			rec.ToolCallID = m.ToolCallID
			rec.Name = m.Name
			rec.Status = m.Status
		}
		records = append(records, rec)
	}
	return json.MarshalIndent(records, "", "  ")
}

// Import replaces the log with a transcript produced by Export. The whole
// payload is validated before the current log is touched. Unknown types are
// kept as generic messages; missing or unreadable timestamps are replaced
// with the current time.
func (s *Store) Import(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return &FormatError{Record: -1, Reason: "expected a JSON array of messages", Err: err}
	}

	now := s.now()
	messages := make([]model.Message, 0, len(raws))
	issued := make(map[string]struct{})

	for i, raw := range raws {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			return &FormatError{Record: i, Reason: "not an object"}
		}
		if _, ok := fields["type"]; !ok {
			return &FormatError{Record: i, Reason: `missing "type"`}
		}
		if _, ok := fields["content"]; !ok {
			return &FormatError{Record: i, Reason: `missing "content"`}
		}

		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return &FormatError{Record: i, Reason: "unexpected field types", Err: err}
		}

		created := parseTimestamp(rec.Timestamp, now)

		var msg model.Message
		switch model.Role(rec.Type) {
		case model.RoleSystem:
			msg = &model.SystemMessage{Content: rec.Content, Created: created}
		case model.RoleHuman:
			msg = &model.HumanMessage{Content: rec.Content, Created: created}
		case model.RoleAI:
			for _, call := range rec.ToolCalls {
				issued[call.ID] = struct{}{}
			}
			msg = &model.AIMessage{Content: rec.Content, ToolCalls: rec.ToolCalls, Created: created}
		case model.RoleTool:
			if _, ok := issued[rec.ToolCallID]; !ok {
				return &FormatError{Record: i, Reason: fmt.Sprintf("tool_call_id %q has no earlier tool call", rec.ToolCallID)}
			}
			status := rec.Status
			if status == "" {
				status = model.ToolStatusSuccess
			}
			msg = &model.ToolMessage{
				Content:    rec.Content,
				ToolCallID: rec.ToolCallID,
				Name:       rec.Name,
				Status:     status,
				Created:    created,
			}
		default:
			msg = &model.GenericMessage{Type: rec.Type, Content: rec.Content, Created: created}
		}
		messages = append(messages, msg)
	}

	s.replace(messages, issued)
	return nil
}

func parseTimestamp(ts string, fallback time.Time) time.Time {
	if ts == "" {
		return fallback
	}
	t, err := timeconv.ToTimezone(ts, "")
	if err != nil {
		return fallback
	}
	return t
}
