package timecalc

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by notes and the API.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current local date as YYYY-MM-DD.
func Today() string {
	return FormatDate(time.Now())
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, ..., Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	return monday, sunday
}

// DateRange validates a from/to pair and returns them normalised.
// An empty to defaults to from.
func DateRange(from, to string) (string, string, error) {
	f, err := ParseDate(from)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(to) == "" {
		return FormatDate(f), FormatDate(f), nil
	}
	t, err := ParseDate(to)
	if err != nil {
		return "", "", err
	}
	if t.Before(f) {
		return "", "", fmt.Errorf("end date %s is before start date %s", FormatDate(t), FormatDate(f))
	}
	return FormatDate(f), FormatDate(t), nil
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
