package appointments

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/tui/forms"
)

type CancelCmd struct {
	Date     string `help:"Day of the appointment: YYYY-MM-DD, today or tomorrow." default:"today"`
	Slot     string `help:"Start time (HH:MM)."`
	Barber   string `help:"Barber name."`
	Customer string `help:"Customer name."`
	Yes      bool   `short:"y" help:"Do not ask for confirmation."`
}

func (c *CancelCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	d, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}
	date := calendar.FormatDate(d)

	target := models.Appointment{
		Date:     date,
		Slot:     strings.TrimSpace(c.Slot),
		Barber:   strings.TrimSpace(c.Barber),
		Customer: strings.TrimSpace(c.Customer),
	}

	if target.Slot == "" || target.Barber == "" || target.Customer == "" {
		day, err := ctx.Service.ListForDate(bg, date)
		if err != nil {
			return err
		}
		candidates := Filter(day, target)
		if len(candidates) == 0 {
			return booking.ErrNotFound
		}

		choice := 0
		if err := forms.NewCancelPicker(candidates, &choice).Run(); err != nil {
			return fmt.Errorf("cancel aborted: %w", err)
		}
		target = candidates[choice]
	}

	if !c.Yes {
		ok := false
		if err := forms.NewConfirm(fmt.Sprintf("Cancel %s on %s?", target.Label(), ctx.DayLabel(d)), &ok).Run(); err != nil {
			return fmt.Errorf("cancel aborted: %w", err)
		}
		if !ok {
			fmt.Println("Nothing cancelled.")
			return nil
		}
	}

	err = ctx.Service.Cancel(bg, target)
	if ctx.Metrics != nil {
		ctx.Metrics.ObserveBooking("cancel", err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✓ Cancelled %s on %s\n", target.Label(), ctx.DayLabel(d))
	return nil
}

// Filter keeps the rows that agree with every non-empty field of want.
func Filter(rows []models.Appointment, want models.Appointment) []models.Appointment {
	var out []models.Appointment
	for _, r := range rows {
		if want.Slot != "" && r.Slot != want.Slot {
			continue
		}
		if want.Barber != "" && r.Barber != want.Barber {
			continue
		}
		if want.Customer != "" && r.Customer != want.Customer {
			continue
		}
		out = append(out, r)
	}
	return out
}
