package calendar

import (
	"fmt"
	"time"

	"github.com/julianstephens/barberbook/internal/constants"
)

// Clock is a time of day expressed in minutes from midnight.
type Clock int

// ParseClock parses a time string in the standard format (HH:MM).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// MustParseClock is like ParseClock but panics on error. Intended for literals.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ValidSlotLabel reports whether s is a well-formed HH:MM label.
func ValidSlotLabel(s string) bool {
	_, err := ParseClock(s)
	return err == nil && len(s) == len(constants.TimeFormat)
}
