// pkg/model/dates.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// dateFormats are the accepted input layouts, tried in order.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
}

// ParseDate parses a raw date string against the accepted layouts.
// An empty or whitespace-only string is an error; callers decide whether
// missing dates are acceptable for the field in question.
func ParseDate(raw string) (time.Time, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date string")
	}

	for _, format := range dateFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse date from %q", cleaned)
}

// WholeDaysBetween returns the whole-day difference between two timestamps,
// truncating both to calendar dates first.
func WholeDaysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}
