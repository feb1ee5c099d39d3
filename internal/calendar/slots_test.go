package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSlots(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string][]string
	}{
		{"absent", ``, map[string][]string{}},
		{"null", `null`, map[string][]string{}},
		{"empty object", `{}`, map[string][]string{}},
		{
			name: "keyed by date",
			raw:  `{"2025-05-28":[{"start":"2025-05-28T11:00:00.000-07:00"},{"start":"2025-05-28T11:30:00.000-07:00"}]}`,
			want: map[string][]string{"2025-05-28": {"2025-05-28T11:00:00.000-07:00", "2025-05-28T11:30:00.000-07:00"}},
		},
		{
			name: "flat list with time and start",
			raw:  `[{"time":"2025-06-01T09:00:00Z"},{"start":"2025-06-01T10:00:00Z"},{"start":"2025-06-02T10:00:00Z"}]`,
			want: map[string][]string{
				"2025-06-01": {"2025-06-01T09:00:00Z", "2025-06-01T10:00:00Z"},
				"2025-06-02": {"2025-06-02T10:00:00Z"},
			},
		},
		{
			name: "nested slots key",
			raw:  `{"slots":{"2025-06-01":[{"time":"2025-06-01T09:00:00Z"}]}}`,
			want: map[string][]string{"2025-06-01": {"2025-06-01T09:00:00Z"}},
		},
		{
			name: "entries without timestamps are skipped",
			raw:  `[{"foo":"bar"},{"start":""},{"time":"2025-06-01T09:00:00Z"}]`,
			want: map[string][]string{"2025-06-01": {"2025-06-01T09:00:00Z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeSlots(json.RawMessage(tt.raw), 42)
			require.NoError(t, err)

			starts := make(map[string][]string, len(got))
			for date, slots := range got {
				starts[date] = []string{}
				for _, s := range slots {
					assert.Equal(t, 42, s.EventTypeID)
					assert.Equal(t, date, s.Date)
					starts[date] = append(starts[date], s.Start)
				}
			}
			assert.Equal(t, tt.want, starts)
		})
	}
}

func TestNormalizeSlotsKeepsOnlyStart(t *testing.T) {
	raw := `{"2025-06-01":[{"start":"2025-06-01T09:00:00Z","end":"2025-06-01T09:30:00Z","attendees":2,"bookingUid":"abc"}]}`

	got, err := normalizeSlots(json.RawMessage(raw), 7)
	require.NoError(t, err)
	assert.Equal(t, map[string][]Slot{
		"2025-06-01": {{EventTypeID: 7, Date: "2025-06-01", Start: "2025-06-01T09:00:00Z"}},
	}, got)
}

func TestNormalizeSlotsRejectsScalars(t *testing.T) {
	_, err := normalizeSlots(json.RawMessage(`"soon"`), 1)
	assert.Error(t, err)

	_, err = normalizeSlots(json.RawMessage(`{"2025-06-01":"09:00"}`), 1)
	assert.Error(t, err)
}

func TestCheckAvailability(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/slots", r.URL.Path)
		assert.Equal(t, "2520314", q.Get("eventTypeId"))
		assert.Equal(t, "2025-06-01", q.Get("start"))
		assert.Equal(t, "2025-06-02", q.Get("end"))
		assert.Equal(t, "America/Los_Angeles", q.Get("timeZone"))
		fmt.Fprint(w, `{"status":"success","data":[{"time":"2025-06-01T09:00:00Z"},{"start":"2025-06-01T10:00:00Z"}]}`)
	})

	got, err := client.CheckAvailability(context.Background(), "2025-06-01", "2025-06-02", 2520314)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got["2025-06-01"], 2)
	assert.Equal(t, "2025-06-01T09:00:00Z", got["2025-06-01"][0].Start)
	assert.Equal(t, "2025-06-01T10:00:00Z", got["2025-06-01"][1].Start)
}

func TestCheckAvailabilityEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{}}`)
	})

	got, err := client.CheckAvailability(context.Background(), "2025-06-01", "2025-06-30", 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCheckAvailabilityLegacySlotsKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"slots":[{"time":"2025-06-03T17:00:00Z"}]}`)
	})

	got, err := client.CheckAvailability(context.Background(), "2025-06-03", "2025-06-03", 1)
	require.NoError(t, err)
	require.Len(t, got["2025-06-03"], 1)
	assert.Equal(t, "2025-06-03T17:00:00Z", got["2025-06-03"][0].Start)
}
