package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CheckAvailability returns the free slots of one event type between two
// dates (inclusive, YYYY-MM-DD) keyed by date. An empty provider response
// yields an empty map.
func (c *Client) CheckAvailability(ctx context.Context, startDate, endDate string, eventTypeID int) (map[string][]Slot, error) {
	const op = "GET /slots"

	query := url.Values{
		"eventTypeId": {strconv.Itoa(eventTypeID)},
		"start":       {startDate},
		"end":         {endDate},
	}
	if c.cfg.Timezone != "" {
		query.Set("timeZone", c.cfg.Timezone)
	}

	resp, err := c.do(ctx, http.MethodGet, "/slots", query, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, statusError(op, resp)
	}
	env, err := resp.decode(op)
	if err != nil {
		return nil, err
	}
	if env.Status != "" && env.Status != "success" {
		return nil, &MalformedResponseError{Op: op, Reason: fmt.Sprintf("status %q", env.Status)}
	}

	raw := env.Data
	if isEmptyJSON(raw) {
		raw = env.Slots
	}

	slots, err := normalizeSlots(raw, eventTypeID)
	if err != nil {
		return nil, &MalformedResponseError{Op: op, Reason: "unexpected slots shape", Err: err}
	}
	return slots, nil
}

// normalizeSlots converts the shapes the slots endpoint has returned over
// time into one map of date to slots:
//
//	absent, null or {}            -> empty map
//	{"slots": X}                  -> normalizeSlots(X)
//	{"2025-06-01": [...], ...}    -> same date keys, entries decoded into Slot
//	[{"time"|"start": ts}, ...]   -> bucketed by the date part of ts
//
// Only the start timestamp of each entry is kept; other provider fields
// are dropped in every shape. Entries without a usable timestamp are skipped.
func normalizeSlots(raw json.RawMessage, eventTypeID int) (map[string][]Slot, error) {
	out := make(map[string][]Slot)
	if isEmptyJSON(raw) {
		return out, nil
	}

	var shape any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, err
	}

	switch v := shape.(type) {
	case map[string]any:
		if nested, ok := v["slots"]; ok {
			b, err := json.Marshal(nested)
			if err != nil {
				return nil, err
			}
			return normalizeSlots(b, eventTypeID)
		}
		for date, entries := range v {
			list, ok := entries.([]any)
			if !ok {
				return nil, fmt.Errorf("slots for %s are %T, not a list", date, entries)
			}
			slots := make([]Slot, 0, len(list))
			for _, entry := range list {
				if start := slotStart(entry); start != "" {
					slots = append(slots, Slot{EventTypeID: eventTypeID, Date: date, Start: start})
				}
			}
			out[date] = slots
		}
	case []any:
		for _, entry := range v {
			start := slotStart(entry)
			date := datePart(start)
			if date == "" {
				continue
			}
			out[date] = append(out[date], Slot{EventTypeID: eventTypeID, Date: date, Start: start})
		}
	default:
		return nil, fmt.Errorf("slots are %T", shape)
	}

	return out, nil
}

// slotStart reads the timestamp of a slot entry from "start" or "time".
func slotStart(entry any) string {
	switch e := entry.(type) {
	case string:
		return e
	case map[string]any:
		if s, ok := e["start"].(string); ok && s != "" {
			return s
		}
		if s, ok := e["time"].(string); ok {
			return s
		}
	}
	return ""
}

func datePart(ts string) string {
	if i := strings.IndexAny(ts, "T "); i > 0 {
		return ts[:i]
	}
	return ts
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}"))
}
