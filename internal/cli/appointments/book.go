package appointments

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/tui/forms"
)

type BookCmd struct {
	Date     string `help:"Day of the appointment: YYYY-MM-DD, today or tomorrow." default:"today"`
	Slot     string `help:"Start time (HH:MM)."`
	Barber   string `help:"Barber name."`
	Customer string `help:"Customer name."`
}

func (c *BookCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	d, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}
	date := calendar.FormatDate(d)

	req := booking.Request{Date: date, Slot: c.Slot, Barber: c.Barber, Customer: c.Customer}
	if strings.TrimSpace(c.Slot) == "" || strings.TrimSpace(c.Barber) == "" || strings.TrimSpace(c.Customer) == "" {
		if !ctx.Service.IsOpen(d) {
			return booking.ErrClosedDay
		}
		g, err := ctx.Service.Day(bg, date)
		if err != nil {
			return err
		}
		in := &forms.BookingInput{Barber: c.Barber, Slot: c.Slot, Customer: c.Customer}
		if err := forms.NewBookingForm(g, in).Run(); err != nil {
			return fmt.Errorf("booking cancelled: %w", err)
		}
		req = in.Request(date)
	}

	a, err := ctx.Service.Book(bg, req)
	if ctx.Metrics != nil {
		ctx.Metrics.ObserveBooking("book", err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Booked %s on %s\n", a.Label(), ctx.DayLabel(d))
	return nil
}
