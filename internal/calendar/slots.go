package calendar

import (
	"fmt"
	"slices"
)

// GenerateSlots returns every step point in [morningStart, morningEnd)
// followed by every step point in [afternoonStart, afternoonEnd).
// The ranges are not checked for overlap. A non-positive step yields nil.
func GenerateSlots(morningStart, morningEnd, afternoonStart, afternoonEnd Clock, stepMinutes int) []string {
	if stepMinutes <= 0 {
		return nil
	}
	var slots []string
	for _, r := range [][2]Clock{{morningStart, morningEnd}, {afternoonStart, afternoonEnd}} {
		for c := r[0]; c < r[1]; c += Clock(stepMinutes) {
			slots = append(slots, c.String())
		}
	}
	return slots
}

// Hours holds the shop's business hours.
type Hours struct {
	MorningStart   Clock
	MorningEnd     Clock
	AfternoonStart Clock
	AfternoonEnd   Clock
	StepMinutes    int
}

// ParseHours builds Hours from HH:MM strings.
func ParseHours(morningStart, morningEnd, afternoonStart, afternoonEnd string, step int) (Hours, error) {
	var h Hours
	var err error
	fields := []struct {
		dst *Clock
		src string
		key string
	}{
		{&h.MorningStart, morningStart, "morning start"},
		{&h.MorningEnd, morningEnd, "morning end"},
		{&h.AfternoonStart, afternoonStart, "afternoon start"},
		{&h.AfternoonEnd, afternoonEnd, "afternoon end"},
	}
	for _, f := range fields {
		if *f.dst, err = ParseClock(f.src); err != nil {
			return Hours{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}
	h.StepMinutes = step
	return h, h.Validate()
}

// Validate checks that both ranges are ordered and the step is positive.
func (h Hours) Validate() error {
	if h.StepMinutes <= 0 {
		return fmt.Errorf("slot step must be positive, got %d", h.StepMinutes)
	}
	if h.MorningEnd < h.MorningStart {
		return fmt.Errorf("morning end %s is before morning start %s", h.MorningEnd, h.MorningStart)
	}
	if h.AfternoonEnd < h.AfternoonStart {
		return fmt.Errorf("afternoon end %s is before afternoon start %s", h.AfternoonEnd, h.AfternoonStart)
	}
	if len(h.Slots()) == 0 {
		return fmt.Errorf("business hours produce no slots")
	}
	return nil
}

// Slots returns the ordered slot labels for these hours.
func (h Hours) Slots() []string {
	return GenerateSlots(h.MorningStart, h.MorningEnd, h.AfternoonStart, h.AfternoonEnd, h.StepMinutes)
}

// HasSlot reports whether slot is one of the generated labels.
func (h Hours) HasSlot(slot string) bool {
	return slices.Contains(h.Slots(), slot)
}
