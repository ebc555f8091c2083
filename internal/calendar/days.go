package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/barberbook/internal/constants"
)

// WorkingDays returns every date in year whose weekday is in open, ascending.
// Dates are midnight UTC.
func WorkingDays(year int, open WeekdaySet) []time.Time {
	var days []time.Time
	for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		if open.Contains(WeekdayOf(d)) {
			days = append(days, d)
		}
	}
	return days
}

// IsWorkingDay reports whether date falls on an open weekday.
func IsWorkingDay(date time.Time, open WeekdaySet) bool {
	return open.Contains(WeekdayOf(date))
}

// DefaultDay returns the index of today in days, or 0 when today is not a
// working day. Lookup is by calendar date, never by label. Returns -1 for an
// empty list.
func DefaultDay(days []time.Time, today time.Time) int {
	if len(days) == 0 {
		return -1
	}
	key := FormatDate(today)
	for i, d := range days {
		if FormatDate(d) == key {
			return i
		}
	}
	return 0
}

// Today returns the local date as midnight UTC.
func Today() time.Time {
	return Truncate(time.Now())
}

// Truncate drops the time of day and location, keeping the calendar date.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date string (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}
