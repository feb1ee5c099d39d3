// Package timeconv converts between user-local wall-clock timestamps, UTC and
// display time zones.
package timeconv

import (
	"fmt"
	"strings"
	"time"

	// Embedded zone database so conversions do not depend on the host.
	_ "time/tzdata"
)

// UTCLayout is the layout of UTC timestamps sent to the calendar provider.
const UTCLayout = "2006-01-02T15:04:05Z"

// DateLayout is the layout of calendar dates.
const DateLayout = "2006-01-02"

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadLocation resolves an IANA zone name. The empty name is UTC.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

// LocalToUTC converts a timestamp to a UTC string with a Z suffix. Values
// already ending in Z are returned unchanged, values with an explicit offset
// are shifted to UTC, and naive values are read as wall-clock time in tz.
func LocalToUTC(local, tz string) (string, error) {
	s := strings.TrimSpace(local)
	if s == "" {
		return "", fmt.Errorf("empty timestamp")
	}
	if strings.HasSuffix(s, "Z") {
		return s, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(UTCLayout), nil
	}

	loc, err := LoadLocation(tz)
	if err != nil {
		return "", err
	}
	t, err := parseNaive(s, loc)
	if err != nil {
		return "", err
	}
	return t.UTC().Format(UTCLayout), nil
}

// ToTimezone parses an RFC 3339 or naive timestamp (naive is UTC) and
// returns the same instant in tz.
func ToTimezone(ts, tz string) (time.Time, error) {
	s := strings.TrimSpace(ts)
	loc, err := LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = parseNaive(s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.In(loc), nil
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatClock renders 24-hour HH:MM.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// FormatDay renders "YYYY-MM-DD (Weekday)".
func FormatDay(t time.Time) string {
	return t.Format("2006-01-02 (Monday)")
}

func parseNaive(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
