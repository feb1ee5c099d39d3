// Package tools declares the model-callable calendar tools and dispatches
// the tool calls a model response requests.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
)

// Tool is a named, schema-described operation the model can request.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the tool's arguments.
	Parameters() json.RawMessage
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Backend is the calendar surface the tools run against. *calendar.Client
// satisfies it.
type Backend interface {
	Timezone() string
	ResolveTargetAccount(ctx context.Context) (string, error)
	EventTypes() []calendar.EventType
	CheckAvailability(ctx context.Context, startDate, endDate string, eventTypeID int) (map[string][]calendar.Slot, error)
	ListBookings(ctx context.Context, email string, maxResults int) ([]calendar.Booking, error)
	CreateBooking(ctx context.Context, req calendar.BookingRequest) (*calendar.Booking, error)
	FormatAvailability(availability map[string][]calendar.Slot, startDate, endDate string) string
	FormatBooking(booking calendar.Booking, showHeader bool) string
	FormatBookingsList(email string, bookings []calendar.Booking) string
}

func getString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func requireString(args map[string]any, key string) (string, error) {
	v := getString(args, key)
	if v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

// getInt accepts JSON numbers and numeric strings.
func getInt(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}
