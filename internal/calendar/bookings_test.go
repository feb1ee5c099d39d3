package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

func bookingsPage(t *testing.T, firstID, n int, hasNext *bool) string {
	t.Helper()
	page := make([]Booking, n)
	for i := range page {
		page[i] = Booking{ID: firstID + i, Title: "Meeting", Start: "2025-06-01T16:00:00Z", Status: "accepted"}
	}
	body := map[string]any{"status": "success", "data": page}
	if hasNext != nil {
		body["pagination"] = map[string]any{"hasNextPage": *hasNext}
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return string(b)
}

func boolPtr(b bool) *bool { return &b }

func TestListBookingsFollowsPagination(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "dev@example.com", q.Get("attendeeEmail"))
		assert.Equal(t, "asc", q.Get("sortStart"))
		assert.Equal(t, "100", q.Get("take"))

		switch q.Get("skip") {
		case "0":
			fmt.Fprint(w, bookingsPage(t, 1, 100, boolPtr(true)))
		case "100":
			fmt.Fprint(w, bookingsPage(t, 101, 10, boolPtr(false)))
		default:
			t.Errorf("unexpected skip %q", q.Get("skip"))
		}
	})

	bookings, err := client.ListBookings(context.Background(), "dev@example.com", 0)
	require.NoError(t, err)
	require.Len(t, bookings, 110)
	for i, b := range bookings {
		assert.Equal(t, i+1, b.ID)
	}
	assert.Equal(t, int32(2), requests.Load())
}

func TestListBookingsMaxResultsStopsPaging(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, bookingsPage(t, 1, 100, boolPtr(true)))
	})

	bookings, err := client.ListBookings(context.Background(), "dev@example.com", 50)
	require.NoError(t, err)
	require.Len(t, bookings, 50)
	assert.Equal(t, 1, bookings[0].ID)
	assert.Equal(t, 50, bookings[49].ID)
	assert.Equal(t, int32(1), requests.Load())
}

func TestListBookingsMetadataOverridesShortPage(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if n == 1 {
			fmt.Fprint(w, bookingsPage(t, skip+1, 5, boolPtr(true)))
			return
		}
		fmt.Fprint(w, bookingsPage(t, skip+1, 3, boolPtr(false)))
	})

	bookings, err := client.ListBookings(context.Background(), "dev@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, bookings, 8)
	assert.Equal(t, 6, bookings[5].ID)
}

func TestListBookingsShortPageWithoutMetadata(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, bookingsPage(t, 1, 7, nil))
	})

	bookings, err := client.ListBookings(context.Background(), "dev@example.com", 0)
	require.NoError(t, err)
	assert.Len(t, bookings, 7)
	assert.Equal(t, int32(1), requests.Load())
}

func TestListBookingsPaginationUnderData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"success","data":{"bookings":[{"id":1,"start":"2025-06-01T16:00:00Z"}],"pagination":{"hasNextPage":false}}}`)
	})

	bookings, err := client.ListBookings(context.Background(), "dev@example.com", 0)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
}

func TestListBookingsEmptyPageEnds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, bookingsPage(t, 1, 0, boolPtr(true)))
	})

	bookings, err := client.ListBookings(context.Background(), "dev@example.com", 0)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestCreateBooking(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	var got bookingPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings", r.URL.Path)
		assert.Equal(t, DefaultVersionBookings, r.Header.Get("cal-api-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		fmt.Fprint(w, `{"status":"success","data":{"id":123,"title":"30 Min Meeting","start":"2025-06-01T16:00:00Z","end":"2025-06-01T16:30:00Z","status":"accepted","attendees":[{"name":"Chad Dev","email":"dev@example.com"}]}}`)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:   "k",
		BaseURL:  server.URL,
		Timezone: "America/Los_Angeles",
	}, &logger.Logger{Logger: zap.New(core)})

	booking, err := client.CreateBooking(context.Background(), BookingRequest{
		Start:       "2025-06-01T16:00:00Z",
		Name:        "Chad Dev",
		Email:       "dev@example.com",
		EventTypeID: 2520314,
	})
	require.NoError(t, err)
	assert.Equal(t, 123, booking.ID)
	assert.Equal(t, "accepted", booking.Status)

	assert.Equal(t, "2025-06-01T16:00:00Z", got.Start)
	assert.Equal(t, 2520314, got.EventTypeID)
	assert.Equal(t, "dev@example.com", got.Attendee.Email)
	assert.Equal(t, "America/Los_Angeles", got.Attendee.TimeZone)
	assert.Equal(t, DefaultLanguage, got.Attendee.Language)
	assert.Equal(t, NotesPlaceholder, got.BookingFieldsResponses["notes"])
	assert.NotNil(t, got.Metadata)

	entries := logs.FilterMessage("creating booking").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["payload"].(bookingPayload)
	require.True(t, ok)
	assert.Equal(t, "[redacted]", logged.Attendee.Email)
}

func TestCreateBookingRejected(t *testing.T) {
	for _, body := range []string{
		`{"status":"error","message":"slot no longer available"}`,
		`{"status":"error","error":{"message":"slot no longer available"}}`,
	} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, body)
		})

		_, err := client.CreateBooking(context.Background(), BookingRequest{
			Start:       "2025-06-01T16:00:00Z",
			Name:        "Chad Dev",
			Email:       "dev@example.com",
			EventTypeID: 1,
			Reason:      "Interview prep",
		})
		var bookingErr *BookingError
		require.ErrorAs(t, err, &bookingErr)
		assert.Equal(t, http.StatusBadRequest, bookingErr.StatusCode)
		assert.Equal(t, "slot no longer available", bookingErr.ProviderMessage)

		var transportErr *TransportError
		assert.ErrorAs(t, err, &transportErr)
	}
}

func TestCreateBookingRequiresUTC(t *testing.T) {
	var requests atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	_, err := client.CreateBooking(context.Background(), BookingRequest{
		Start:       "2025-06-01T09:00:00",
		Name:        "Chad Dev",
		Email:       "dev@example.com",
		EventTypeID: 1,
	})
	assert.ErrorIs(t, err, ErrStartNotUTC)
	assert.Zero(t, requests.Load())
}
