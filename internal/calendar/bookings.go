package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NotesPlaceholder is sent when a booking has no reason; the provider
// requires the notes field.
const NotesPlaceholder = "No specific reason provided"

// ListBookings fetches the bookings of an attendee in start order, following
// pages until the provider reports no further page. Pagination metadata is
// trusted when present; otherwise a short page ends the listing. When
// maxResults is positive the result is truncated to it and no further page
// is requested once it is reached.
func (c *Client) ListBookings(ctx context.Context, email string, maxResults int) ([]Booking, error) {
	const op = "GET /bookings"

	var all []Booking
	skip := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		query := url.Values{
			"attendeeEmail": {email},
			"sortStart":     {"asc"},
			"take":          {strconv.Itoa(c.cfg.PageSize)},
			"skip":          {strconv.Itoa(skip)},
		}
		env, err := c.getData(ctx, "/bookings", query)
		if err != nil {
			return nil, err
		}

		page, meta, err := decodeBookingsPage(env)
		if err != nil {
			return nil, &MalformedResponseError{Op: op, Reason: "unexpected bookings data", Err: err}
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		if maxResults > 0 && len(all) >= maxResults {
			all = all[:maxResults]
			break
		}

		if meta != nil && meta.HasNextPage != nil {
			if !*meta.HasNextPage {
				break
			}
		} else if len(page) < c.cfg.PageSize {
			break
		}
		skip += len(page)
	}

	c.logger.Debug("bookings listed", zap.Int("count", len(all)))
	return all, nil
}

// decodeBookingsPage accepts data as a list of bookings, or as an object
// holding the list and pagination metadata.
func decodeBookingsPage(env *envelope) ([]Booking, *pagination, error) {
	var page []Booking
	if err := json.Unmarshal(env.Data, &page); err == nil {
		return page, env.Pagination, nil
	}

	var nested struct {
		Bookings   []Booking   `json:"bookings"`
		Pagination *pagination `json:"pagination"`
	}
	if err := json.Unmarshal(env.Data, &nested); err != nil {
		return nil, nil, err
	}
	meta := env.Pagination
	if meta == nil || meta.HasNextPage == nil {
		meta = nested.Pagination
	}
	return nested.Bookings, meta, nil
}

type bookingPayload struct {
	Start                  string            `json:"start"`
	EventTypeID            int               `json:"eventTypeId"`
	Attendee               Attendee          `json:"attendee"`
	BookingFieldsResponses map[string]string `json:"bookingFieldsResponses"`
	Metadata               map[string]string `json:"metadata"`
}

// redacted returns a copy safe to log.
func (p bookingPayload) redacted() bookingPayload {
	p.Attendee.Email = "[redacted]"
	return p
}

// CreateBooking books a meeting. req.Start must already be UTC.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	const op = "POST /bookings"

	if !strings.HasSuffix(req.Start, "Z") {
		return nil, fmt.Errorf("%w: got %q", ErrStartNotUTC, req.Start)
	}
	if req.EventTypeID <= 0 {
		return nil, fmt.Errorf("invalid event type id %d", req.EventTypeID)
	}

	notes := strings.TrimSpace(req.Reason)
	if notes == "" {
		notes = NotesPlaceholder
	}

	payload := bookingPayload{
		Start:       req.Start,
		EventTypeID: req.EventTypeID,
		Attendee: Attendee{
			Name:     req.Name,
			Email:    req.Email,
			TimeZone: c.cfg.Timezone,
			Language: c.cfg.Language,
		},
		BookingFieldsResponses: map[string]string{"notes": notes},
		Metadata:               map[string]string{},
	}

	c.logger.Info("creating booking", zap.Any("payload", payload.redacted()))

	resp, err := c.do(ctx, http.MethodPost, "/bookings", nil, payload)
	if err != nil {
		return nil, err
	}

	if !resp.ok() {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, statusError(op, resp)
		}
		var env envelope
		_ = json.Unmarshal(resp.Body, &env)
		bookingErr := &BookingError{
			StatusCode:      resp.StatusCode,
			ProviderMessage: env.providerMessage(),
			Err:             &TransportError{Op: op, StatusCode: resp.StatusCode},
		}
		c.logger.Error("booking rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("provider_message", bookingErr.ProviderMessage),
			zap.Any("payload", payload.redacted()),
		)
		return nil, bookingErr
	}

	env, err := resp.decode(op)
	if err != nil {
		return nil, err
	}
	if err := env.validate(op); err != nil {
		return nil, err
	}

	var booking Booking
	if err := json.Unmarshal(env.Data, &booking); err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "unexpected booking data", Err: err}
	}

	c.logger.Info("booking created", zap.Int("booking_id", booking.ID), zap.String("status", booking.Status))
	return &booking, nil
}
