package calendar

// EventType is a bookable meeting template.
type EventType struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Slot is one bookable start time.
type Slot struct {
	EventTypeID int    `json:"event_type_id,omitempty"`
	Date        string `json:"date"`
	Start       string `json:"start"`
}

// Attendee is a booking participant.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone,omitempty"`
	Language string `json:"language,omitempty"`
}

// Booking is a meeting as reported by the provider.
type Booking struct {
	ID          int        `json:"id"`
	UID         string     `json:"uid,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Notes       string     `json:"notes,omitempty"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	Status      string     `json:"status"`
	EventTypeID int        `json:"eventTypeId"`
	Attendees   []Attendee `json:"attendees"`

	// Flat attendee fields sent by older API versions.
	AttendeeName  string `json:"attendeeName,omitempty"`
	AttendeeEmail string `json:"attendeeEmail,omitempty"`
}

// BookingRequest holds the inputs of a new booking. Start must be a UTC
// timestamp ending in Z.
type BookingRequest struct {
	Start       string
	Name        string
	Email       string
	EventTypeID int
	Reason      string
}
