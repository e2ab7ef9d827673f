package passes

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date-only format sent by the intake form
const DateLayout = "2006-01-02"

var acceptedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseDate accepts RFC 3339 instants and zone-less date or date-time strings.
// Zone-less values are read as UTC, a bare date is UTC midnight.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", value)
}
