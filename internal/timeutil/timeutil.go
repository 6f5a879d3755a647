package timeutil

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var defaultLocation = time.UTC

// ResolveLocation returns the named location with UTC fallback.
func ResolveLocation(timezone string) (*time.Location, bool) {
	if timezone == "" {
		return defaultLocation, true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return defaultLocation, true
	}
	return loc, false
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date value is required")
	}
	d, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", value)
	}
	return d, nil
}

// NormalizeClock accepts H:MM, HH:MM or HH:MM:SS and returns HH:MM.
func NormalizeClock(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(ClockLayout), true
		}
	}
	return "", false
}

// AddMinutes shifts an HH:MM clock value, wrapping around midnight.
func AddMinutes(clock string, minutes int) (string, error) {
	t, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return "", fmt.Errorf("unable to parse clock: %s", clock)
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format(ClockLayout), nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ResolveSearchEnd maps a question to the last day of its search window.
// "weekend" means the coming Friday (a full week ahead when today is Friday
// or later), "next week" means ten days out, anything else a week out.
func ResolveSearchEnd(query string, today time.Time) time.Time {
	today = StartOfDay(today)
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "weekend"):
		offset := int(time.Friday) - int(today.Weekday())
		if offset <= 0 {
			offset += 7
		}
		return today.AddDate(0, 0, offset)
	case strings.Contains(q, "next week"):
		return today.AddDate(0, 0, 10)
	default:
		return today.AddDate(0, 0, 7)
	}
}
