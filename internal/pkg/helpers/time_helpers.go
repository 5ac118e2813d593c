package helpers

import (
	"strings"
	"time"
)

// DateLayout is the query-string date format
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value as the start of that day in loc.
// ok is false for empty or malformed input.
func ParseDate(value string, loc *time.Location) (t time.Time, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay truncates t to midnight in its location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
