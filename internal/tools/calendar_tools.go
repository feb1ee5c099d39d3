package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
	"github.com/chadn/ai-chatbot-meetings/internal/timeconv"
)

// Tool names.
const (
	NameCheckAvailability = "check_meeting_availability"
	NameBookMeeting       = "book_meeting"
	NameScheduledBookings = "get_scheduled_bookings"
)

// NewCalendarTools returns the built-in tools bound to backend.
// maxBookings caps get_scheduled_bookings; zero means no cap.
func NewCalendarTools(backend Backend, maxBookings int) []Tool {
	return []Tool{
		&CheckAvailabilityTool{backend: backend},
		&BookMeetingTool{backend: backend},
		&ScheduledBookingsTool{backend: backend, maxResults: maxBookings},
	}
}

// CheckAvailabilityTool lists free slots for every event type of the account.
type CheckAvailabilityTool struct {
	backend Backend
}

func (t *CheckAvailabilityTool) Name() string { return NameCheckAvailability }
func (t *CheckAvailabilityTool) Description() string {
	return "Check available meeting slots for a date range. Returns the free start times per event type, with the event type id needed by book_meeting."
}

func (t *CheckAvailabilityTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"start_date": {
				"type": "string",
				"description": "Start date in YYYY-MM-DD format"
			},
			"end_date": {
				"type": "string",
				"description": "End date in YYYY-MM-DD format (optional, defaults to start_date)"
			}
		},
		"required": ["start_date"]
	}`)
}

func (t *CheckAvailabilityTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	out, err := t.check(ctx, args)
	if err != nil {
		return "", fmt.Errorf("checking availability: %w", err)
	}
	return out, nil
}

func (t *CheckAvailabilityTool) check(ctx context.Context, args map[string]any) (string, error) {
	startDate, err := requireString(args, "start_date")
	if err != nil {
		return "", err
	}
	endDate := getString(args, "end_date")
	if endDate == "" {
		endDate = startDate
	}
	for _, d := range []string{startDate, endDate} {
		if _, err := timeconv.ParseDate(d); err != nil {
			return "", err
		}
	}

	username, err := t.backend.ResolveTargetAccount(ctx)
	if err != nil {
		return "", err
	}
	eventTypes := t.backend.EventTypes()
	if len(eventTypes) == 0 {
		return fmt.Sprintf("No event types are set up for %s, so there is no availability to check.", username), nil
	}

	sections := make([]string, 0, len(eventTypes))
	for _, et := range eventTypes {
		slots, err := t.backend.CheckAvailability(ctx, startDate, endDate, et.ID)
		if err != nil {
			return "", err
		}
		header := fmt.Sprintf("Event type: %s (event_type_id %d, %d minutes)\n", et.Title, et.ID, et.DurationMinutes)
		sections = append(sections, header+t.backend.FormatAvailability(slots, startDate, endDate))
	}
	return strings.Join(sections, "\n\n"), nil
}

// BookMeetingTool books a meeting at a local start time.
type BookMeetingTool struct {
	backend Backend
}

func (t *BookMeetingTool) Name() string { return NameBookMeeting }
func (t *BookMeetingTool) Description() string {
	return "Book a meeting at the specified local start time. Use an event_type_id returned by check_meeting_availability."
}

func (t *BookMeetingTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"start_time": {
				"type": "string",
				"description": "Meeting start time in the user's timezone, ISO format YYYY-MM-DDTHH:MM:SS"
			},
			"name": {
				"type": "string",
				"description": "Attendee's full name"
			},
			"email": {
				"type": "string",
				"description": "Attendee's email address"
			},
			"event_type_id": {
				"type": "integer",
				"description": "Event type id from check_meeting_availability"
			},
			"reason": {
				"type": "string",
				"description": "Optional reason for the meeting, saved as the booking notes"
			}
		},
		"required": ["start_time", "name", "email", "event_type_id"]
	}`)
}

func (t *BookMeetingTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	out, err := t.book(ctx, args)
	if err != nil {
		return "", fmt.Errorf("booking meeting: %w", err)
	}
	return out, nil
}

func (t *BookMeetingTool) book(ctx context.Context, args map[string]any) (string, error) {
	startTime, err := requireString(args, "start_time")
	if err != nil {
		return "", err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return "", err
	}
	email, err := requireString(args, "email")
	if err != nil {
		return "", err
	}
	eventTypeID, ok := getInt(args, "event_type_id")
	if !ok || eventTypeID <= 0 {
		return "", fmt.Errorf("missing required argument %q", "event_type_id")
	}

	startUTC, err := timeconv.LocalToUTC(startTime, t.backend.Timezone())
	if err != nil {
		return "", err
	}

	booking, err := t.backend.CreateBooking(ctx, calendar.BookingRequest{
		Start:       startUTC,
		Name:        name,
		Email:       email,
		EventTypeID: eventTypeID,
		Reason:      getString(args, "reason"),
	})
	if err != nil {
		return "", err
	}
	return t.backend.FormatBooking(*booking, true), nil
}

// ScheduledBookingsTool lists the bookings of an attendee.
type ScheduledBookingsTool struct {
	backend    Backend
	maxResults int
}

func (t *ScheduledBookingsTool) Name() string { return NameScheduledBookings }
func (t *ScheduledBookingsTool) Description() string {
	return "Get the scheduled bookings of a user by email."
}

func (t *ScheduledBookingsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"email": {
				"type": "string",
				"description": "The attendee email address to look up"
			}
		},
		"required": ["email"]
	}`)
}

func (t *ScheduledBookingsTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	out, err := t.list(ctx, args)
	if err != nil {
		return "", fmt.Errorf("retrieving scheduled events: %w", err)
	}
	return out, nil
}

func (t *ScheduledBookingsTool) list(ctx context.Context, args map[string]any) (string, error) {
	email, err := requireString(args, "email")
	if err != nil {
		return "", err
	}
	bookings, err := t.backend.ListBookings(ctx, email, t.maxResults)
	if err != nil {
		return "", err
	}
	return t.backend.FormatBookingsList(email, bookings), nil
}
