package model

import (
	"time"
)

// Session describes one chat session.
type Session struct {
	ID           string    `json:"id"`
	Owner        string    `json:"owner"`
	ModelName    string    `json:"model"`
	Timezone     string    `json:"timezone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// CreateSessionRequest is the request to open a new session.
type CreateSessionRequest struct {
	Model    string `json:"model,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// SetModelRequest switches the model used by a session.
type SetModelRequest struct {
	Model string `json:"model"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}

// SendMessageRequest is the request to run one user turn.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// SendMessageResponse is the result of one user turn.
type SendMessageResponse struct {
	Reply    DisplayMessage   `json:"reply"`
	Messages []DisplayMessage `json:"messages"`
}

// ListMessagesResponse is the display view of a session's history.
type ListMessagesResponse struct {
	Messages []DisplayMessage `json:"messages"`
	Total    int              `json:"total"`
}

// ImportTranscriptResponse reports the result of a transcript import.
type ImportTranscriptResponse struct {
	Imported int `json:"imported"`
}
