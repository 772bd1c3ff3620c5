// Package datetime provides standardized date handling across the application.
// All dates are stored and transmitted in UTC using ISO 8601 formats.
package datetime

import (
	"strings"
	"time"
)

// DateFormat is the standard date-only format (YYYY-MM-DD).
const DateFormat = "2006-01-02"

// ParseDate parses a date string in YYYY-MM-DD format, falling back to
// RFC3339 and truncating to the date portion. Upstream publication and
// deadline fields arrive in either shape.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	t, err := time.Parse(DateFormat, s)
	if err == nil {
		return t, nil
	}

	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t), nil
}

// FormatDate renders a time as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateFormat)
}

// StartOfDay returns the datetime at 00:00:00 UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same UTC calendar date.
// Time-of-day components are ignored.
func SameDay(a, b time.Time) bool {
	return StartOfDay(a).Equal(StartOfDay(b))
}

// Before reports whether a's date part is strictly earlier than b's.
func Before(a, b time.Time) bool {
	return StartOfDay(a).Before(StartOfDay(b))
}
