package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDate = regexp.MustCompile(`^(\d+)([dwmy])$`)

// ParseDate accepts a relative age ("7d", "2w", "1m" as 30 days, "1y" as
// 365 days) measured back from now, a calendar date "2006-01-02" (UTC), or
// an RFC3339 time. With endOfDay a calendar date means its last microsecond.
func ParseDate(s string, now time.Time, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)

	if m := relativeDate.FindStringSubmatch(strings.ToLower(s)); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		days := map[string]int{"d": 1, "w": 7, "m": 30, "y": 365}[m[2]]
		return now.UTC().AddDate(0, 0, -n*days), nil
	}

	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Microsecond)
		}
		return t, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q (use 7d, 2w, 1m, 1y, YYYY-MM-DD or RFC3339)", ErrInvalidDate, s)
}

// ParseRange parses optional from/to bounds. An empty string leaves that
// side open; a date-only upper bound covers the whole day.
func ParseRange(from, to string, now time.Time) (*time.Time, *time.Time, error) {
	var lo, hi *time.Time
	if strings.TrimSpace(from) != "" {
		t, err := ParseDate(from, now, false)
		if err != nil {
			return nil, nil, fmt.Errorf("from: %w", err)
		}
		lo = &t
	}
	if strings.TrimSpace(to) != "" {
		t, err := ParseDate(to, now, true)
		if err != nil {
			return nil, nil, fmt.Errorf("to: %w", err)
		}
		hi = &t
	}
	return lo, hi, nil
}
