package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAvailability(t *testing.T) {
	client := NewClient(Config{Timezone: "America/Los_Angeles"}, nil)

	got := client.FormatAvailability(map[string][]Slot{
		"2025-06-02": {{Start: "2025-06-02T17:00:00Z"}},
		"2025-06-01": {{Start: "2025-06-01T16:00:00Z"}, {Start: "2025-06-01T16:30:00Z"}},
	}, "2025-06-01", "2025-06-02")

	want := "Available time slots for 2025-06-01 to 2025-06-02 (timezone: America/Los_Angeles):\n" +
		"\n2025-06-01 (Sunday):\n- 09:00\n- 09:30\n" +
		"\n2025-06-02 (Monday):\n- 10:00\n"
	assert.Equal(t, want, got)
}

func TestFormatAvailabilityEmpty(t *testing.T) {
	client := NewClient(Config{Timezone: "UTC"}, nil)
	assert.Equal(t, "No availability found for 2025-06-01 to 2025-06-01",
		client.FormatAvailability(nil, "2025-06-01", ""))
}

func TestFormatBooking(t *testing.T) {
	client := NewClient(Config{Timezone: "America/Los_Angeles"}, nil)

	booking := Booking{
		Title:       "30 Min Meeting",
		Description: "Interview Prep",
		Start:       "2025-05-28T20:00:00.000Z",
		End:         "2025-05-28T20:30:00.000Z",
		Status:      "accepted",
		Attendees:   []Attendee{{Name: "Chad Dev", Email: "dev@example.com"}},
	}

	want := "Meeting successfully booked!\n" +
		"Title: 30 Min Meeting\n" +
		"Description: Interview Prep\n" +
		"Date: 2025-05-28 Wednesday\n" +
		"Time: 13:00 to 13:30 (in America/Los_Angeles)\n" +
		"Attendee: Chad Dev (dev@example.com)\n" +
		"Status: accepted"
	assert.Equal(t, want, client.FormatBooking(booking, true))
}

func TestFormatBookingDefaults(t *testing.T) {
	client := NewClient(Config{}, nil)

	got := client.FormatBooking(Booking{Start: "2025-05-28T20:00:00Z"}, false)
	assert.Equal(t, "Title: Meeting\n"+
		"Description: No description provided\n"+
		"Date: 2025-05-28 Wednesday\n"+
		"Time: 20:00\n"+
		"Attendee: Unknown (Unknown)\n"+
		"Status: Unknown", got)

	assert.Equal(t, "[Invalid booking: missing start time]", client.FormatBooking(Booking{}, false))
}

func TestFormatBookingsList(t *testing.T) {
	client := NewClient(Config{Timezone: "UTC"}, nil)

	assert.Equal(t, "No scheduled events found for dev@example.com.",
		client.FormatBookingsList("dev@example.com", nil))

	got := client.FormatBookingsList("dev@example.com", []Booking{
		{Title: "A", Start: "2025-06-01T16:00:00Z", AttendeeName: "Chad", AttendeeEmail: "dev@example.com"},
		{Title: "B", Start: "2025-06-02T16:00:00Z"},
	})
	assert.Contains(t, got, "Scheduled events for dev@example.com (in UTC):\nTitle: A")
	assert.Contains(t, got, "Status: Unknown\n\nTitle: B")
	assert.Contains(t, got, "Attendee: Chad (dev@example.com)")
}
