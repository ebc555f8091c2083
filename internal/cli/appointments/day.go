package appointments

import (
	"context"
	"fmt"

	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/tui/components/grid"
)

type DayCmd struct {
	Date string `arg:"" optional:"" help:"Day to show: YYYY-MM-DD, today or tomorrow." default:"today"`
}

func (c *DayCmd) Run(ctx *cli.Context) error {
	d, err := ctx.ParseDate(c.Date)
	if err != nil {
		return err
	}

	g, err := ctx.Service.Day(context.Background(), calendar.FormatDate(d))
	if err != nil {
		return err
	}

	fmt.Println(ctx.DayLabel(d))
	if !ctx.Service.IsOpen(d) {
		fmt.Println("The shop is closed on this day.")
		if len(g.Appointments) == 0 {
			return nil
		}
	}
	fmt.Println(grid.Table(g))
	fmt.Printf("%d booked, %d free\n", g.Booked(), len(g.Slots)*len(g.Barbers)-g.Booked())
	return nil
}

type DaysCmd struct {
	Year int `help:"Year to list (default: current year)."`
}

func (c *DaysCmd) Run(ctx *cli.Context) error {
	today := ctx.Today()
	year := c.Year
	if year == 0 {
		year = today.Year()
	}

	days := ctx.Service.WorkingDays(year)
	if len(days) == 0 {
		fmt.Printf("No working days in %d.\n", year)
		return nil
	}
	for _, d := range days {
		marker := " "
		if d.Equal(today) {
			marker = "*"
		}
		fmt.Printf("%s %s  %s\n", marker, calendar.FormatDate(d), ctx.DayLabel(d))
	}
	fmt.Printf("\n%d working days in %d\n", len(days), year)
	return nil
}
