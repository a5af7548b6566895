package services

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate parses YYYY-MM-DD or RFC3339 into UTC
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.UTC(), nil
	}

	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD or RFC3339", ErrValidation, dateStr)
	}
	return parsedTime, nil
}

// ParseDateBound parses an optional filter bound. Empty input yields nil. A
// bare date used as an upper bound covers the whole day.
func ParseDateBound(value string, upper bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	if upper && len(value) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
