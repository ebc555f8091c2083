package forms

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/models"
)

// BookingInput collects a new appointment for a known day.
type BookingInput struct {
	Barber   string
	Slot     string
	Customer string
}

// Request turns the input into a booking request for date.
func (in BookingInput) Request(date string) booking.Request {
	return booking.Request{
		Date:     date,
		Slot:     in.Slot,
		Barber:   in.Barber,
		Customer: in.Customer,
	}
}

// SlotOptions returns the free slots of barber in g. An empty result means
// the barber is fully booked.
func SlotOptions(g booking.Grid, barber string) []huh.Option[string] {
	return huh.NewOptions(g.FreeSlots(barber)...)
}

// NewBookingForm asks for barber, then one of that barber's free slots, then
// the customer name.
func NewBookingForm(g booking.Grid, in *BookingInput) *huh.Form {
	if in.Barber == "" && len(g.Barbers) > 0 {
		in.Barber = g.Barbers[0]
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Barber").
				Options(huh.NewOptions(g.Barbers...)...).
				Value(&in.Barber),
			huh.NewSelect[string]().
				Title("Time").
				OptionsFunc(func() []huh.Option[string] {
					return SlotOptions(g, in.Barber)
				}, &in.Barber).
				Value(&in.Slot).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("%s has no free slots on this day", in.Barber)
					}
					return nil
				}),
			huh.NewInput().
				Title("Customer").
				Value(&in.Customer).
				Validate(ValidateCustomer),
		),
	).WithTheme(huh.ThemeDracula())
}

// ValidateCustomer rejects blank names.
func ValidateCustomer(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("customer name cannot be empty")
	}
	return nil
}

// NewCancelPicker lists appts as "<slot> • <barber> • <customer>" and stores
// the chosen index.
func NewCancelPicker(appts []models.Appointment, chosen *int) *huh.Form {
	opts := make([]huh.Option[int], len(appts))
	for i, a := range appts {
		opts[i] = huh.NewOption(a.Label(), i)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Cancel which appointment?").
				Options(opts...).
				Value(chosen),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewDayPicker lists working days and stores the chosen date as YYYY-MM-DD.
func NewDayPicker(days []time.Time, label func(time.Time) string, chosen *string) *huh.Form {
	opts := make([]huh.Option[string], len(days))
	for i, d := range days {
		date := calendar.FormatDate(d)
		opts[i] = huh.NewOption(label(d), date).Selected(date == *chosen)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Go to day").
				Options(opts...).
				Height(12).
				Value(chosen),
		),
	).WithTheme(huh.ThemeDracula())
}

// NewConfirm asks a yes/no question.
func NewConfirm(title string, ok *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(ok),
		),
	).WithTheme(huh.ThemeDracula())
}
