package middleware

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/timeconv"
)

// MaxContentLength bounds one user message.
const MaxContentLength = 16000

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateModel checks a model name against the supported list.
func ValidateModel(name string) error {
	if !llm.IsSupported(name) {
		return fmt.Errorf("unsupported model %q", name)
	}
	return nil
}

// ValidateTimezone checks an IANA timezone name. Empty is allowed and means
// the server default.
func ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := timeconv.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q", tz)
	}
	return nil
}
