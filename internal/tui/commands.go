package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
)

const (
	storeTimeout  = 30 * time.Second
	statusTimeout = 4 * time.Second
)

type gridLoadedMsg struct {
	date string
	grid booking.Grid
	err  error
}

type bookedMsg struct {
	appt models.Appointment
	err  error
}

type cancelledMsg struct {
	appt models.Appointment
	err  error
}

type clearStatusMsg struct {
	seq int
}

func loadDay(svc *booking.Service, date string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		g, err := svc.Day(ctx, date)
		return gridLoadedMsg{date: date, grid: g, err: err}
	}
}

func bookCmd(svc *booking.Service, req booking.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		a, err := svc.Book(ctx, req)
		if err != nil {
			a = models.Appointment{Date: req.Date, Slot: req.Slot, Barber: req.Barber, Customer: req.Customer}
		}
		return bookedMsg{appt: a, err: err}
	}
}

func cancelCmd(svc *booking.Service, a models.Appointment) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return cancelledMsg{appt: a, err: svc.Cancel(ctx, a)}
	}
}

// refresh drops cached rows and, for remote stores, the client session.
func refresh(store storage.Provider) {
	switch s := store.(type) {
	case storage.Refresher:
		s.Refresh()
	case storage.Invalidator:
		s.Invalidate()
	}
}

func clearStatusAfter(seq int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
