package calendar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chadn/ai-chatbot-meetings/internal/timeconv"
)

func (c *Client) timezoneSuffix() string {
	if c.cfg.Timezone == "" {
		return ""
	}
	return " (in " + c.cfg.Timezone + ")"
}

// FormatAvailability renders slots by date with start times in the display
// timezone.
func (c *Client) FormatAvailability(availability map[string][]Slot, startDate, endDate string) string {
	if endDate == "" {
		endDate = startDate
	}
	if len(availability) == 0 {
		return fmt.Sprintf("No availability found for %s to %s", startDate, endDate)
	}

	var b strings.Builder
	b.WriteString("Available time slots for " + startDate)
	if startDate != endDate {
		b.WriteString(" to " + endDate)
	}
	fmt.Fprintf(&b, " (timezone: %s):\n", c.cfg.Timezone)

	dates := make([]string, 0, len(availability))
	for date := range availability {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		heading := date
		if d, err := timeconv.ParseDate(date); err == nil {
			heading = timeconv.FormatDay(d)
		}
		b.WriteString("\n" + heading + ":\n")

		for _, slot := range availability[date] {
			t, err := timeconv.ToTimezone(slot.Start, c.cfg.Timezone)
			if err != nil {
				b.WriteString("- " + slot.Start + "\n")
				continue
			}
			b.WriteString("- " + timeconv.FormatClock(t) + "\n")
		}
	}

	return b.String()
}

// FormatBooking renders one booking. The header line is used for a fresh
// confirmation.
func (c *Client) FormatBooking(booking Booking, showHeader bool) string {
	if booking.Start == "" {
		return "[Invalid booking: missing start time]"
	}
	start, err := timeconv.ToTimezone(booking.Start, c.cfg.Timezone)
	if err != nil {
		return fmt.Sprintf("[Invalid booking: bad start time %q]", booking.Start)
	}

	endDisplay := ""
	if booking.End != "" {
		if end, err := timeconv.ToTimezone(booking.End, c.cfg.Timezone); err == nil {
			endDisplay = " to " + timeconv.FormatClock(end)
		}
	}

	title := orDefault(booking.Title, "Meeting")
	description := orDefault(booking.Description, orDefault(booking.Notes, "No description provided"))

	name, email := booking.AttendeeName, booking.AttendeeEmail
	if len(booking.Attendees) > 0 {
		name, email = booking.Attendees[0].Name, booking.Attendees[0].Email
	}

	lines := make([]string, 0, 7)
	if showHeader {
		lines = append(lines, "Meeting successfully booked!")
	}
	lines = append(lines,
		"Title: "+title,
		"Description: "+description,
		"Date: "+start.Format("2006-01-02 Monday"),
		"Time: "+timeconv.FormatClock(start)+endDisplay+c.timezoneSuffix(),
		fmt.Sprintf("Attendee: %s (%s)", orDefault(name, "Unknown"), orDefault(email, "Unknown")),
		"Status: "+orDefault(booking.Status, "Unknown"),
	)
	return strings.Join(lines, "\n")
}

// FormatBookingsList renders the bookings of one attendee.
func (c *Client) FormatBookingsList(email string, bookings []Booking) string {
	if len(bookings) == 0 {
		return fmt.Sprintf("No scheduled events found for %s.", email)
	}
	blocks := make([]string, 0, len(bookings))
	for _, booking := range bookings {
		blocks = append(blocks, c.FormatBooking(booking, false))
	}
	return fmt.Sprintf("Scheduled events for %s%s:\n", email, c.timezoneSuffix()) + strings.Join(blocks, "\n\n")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
