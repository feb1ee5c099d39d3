package calendar

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped by every AuthError.
var ErrUnauthorized = errors.New("calendar credentials rejected")

// ErrStartNotUTC is returned when a booking start time is not a UTC timestamp.
var ErrStartNotUTC = errors.New("booking start time must be UTC")

// AuthError reports credentials rejected by the provider (HTTP 401/403).
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("calendar authentication failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("calendar authentication failed (HTTP %d)", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// TransportError reports a network failure, an unexpected HTTP status or an
// undecodable body.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// BookingError reports a booking the provider rejected.
type BookingError struct {
	StatusCode      int
	ProviderMessage string
	Err             error
}

func (e *BookingError) Error() string {
	msg := fmt.Sprintf("booking rejected (HTTP %d)", e.StatusCode)
	if e.ProviderMessage != "" {
		msg += ", API error: " + e.ProviderMessage
	}
	return msg
}

func (e *BookingError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response without the expected
// status/data envelope.
type MalformedResponseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
