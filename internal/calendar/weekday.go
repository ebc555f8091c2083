package calendar

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Weekday uses a fixed Monday=0..Sunday=6 numbering, independent of locale
// and of time.Weekday (which starts on Sunday).
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WeekdayOf returns the weekday of t.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (w Weekday) String() string {
	if w < Monday || w > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

// ParseWeekday accepts a full or three-letter English name, an Italian
// abbreviation, or the numeric index 0-6.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("invalid weekday %d: must be 0 (Monday) to 6 (Sunday)", n)
		}
		return Weekday(n), nil
	}
	for i, name := range weekdayNames {
		if s == name || s == name[:3] {
			return Weekday(i), nil
		}
	}
	for i, name := range ItalianNames {
		if s == strings.ToLower(name) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid weekday: %q", s)
}

// WeekdaySet is a set of weekdays.
type WeekdaySet uint8

// NewWeekdaySet builds a set from the given weekdays.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

// ParseWeekdaySet parses a list of weekday names or indices.
func ParseWeekdaySet(values []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		d, err := ParseWeekday(v)
		if err != nil {
			return 0, err
		}
		s = s.With(d)
	}
	return s, nil
}

func (s WeekdaySet) With(d Weekday) WeekdaySet {
	if d < Monday || d > Sunday {
		return s
	}
	return s | 1<<uint(d)
}

func (s WeekdaySet) Contains(d Weekday) bool {
	if d < Monday || d > Sunday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s&0x7f == 0
}

// Days returns the members in Monday..Sunday order.
func (s WeekdaySet) Days() []Weekday {
	var out []Weekday
	for d := Monday; d <= Sunday; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// Indices returns the members as sorted integers.
func (s WeekdaySet) Indices() []int {
	days := s.Days()
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	sort.Ints(out)
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()[:3]
	}
	return strings.Join(names, ",")
}
