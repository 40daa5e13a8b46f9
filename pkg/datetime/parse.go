// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/fi-dashboard/pkg/constants"
)

const (
	// DateLayout is the canonical observation date format.
	DateLayout = constants.DateLayout
)

// observationLayouts are tried in order when parsing a dataset date cell.
var observationLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006-01",
	"2006",
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseObservationDate parses a dataset date cell. Blank cells report ok=false
// without an error.
func ParseObservationDate(value string) (t time.Time, ok bool, err error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "nat") {
		return time.Time{}, false, nil
	}
	for _, layout := range observationLayouts {
		if parsed, perr := time.Parse(layout, trimmed); perr == nil {
			return parsed.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date %q", value)
}

// ParseISODate parses a YYYY-MM-DD date as used for configured event dates.
func ParseISODate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

// DateBeforeDate returns true if firstDate is strictly before secondDate.
func DateBeforeDate(firstDate string, secondDate string) (bool, error) {
	firstDateT, err := ParseISODate(firstDate)
	if err != nil {
		return false, err
	}
	secondDateT, err := ParseISODate(secondDate)
	if err != nil {
		return false, err
	}
	return firstDateT.Before(secondDateT), nil
}
