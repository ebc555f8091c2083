package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/barberbook/internal/constants"
	apperrors "github.com/julianstephens/barberbook/internal/errors"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/tui/forms"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.grid.SetSize(msg.Width, max(msg.Height-4, 1))
		return m, nil

	case gridLoadedMsg:
		// A slow load for a day we already left is dropped.
		if msg.date != m.currentDate() {
			return m, nil
		}
		if msg.err != nil {
			logger.Warn("Failed to load day", "date", msg.date, "error", msg.err)
			m.grid.SetError(m.title(), msg.err)
			return m, m.setStatus(apperrors.Message(msg.err), true)
		}
		m.grid.SetGrid(m.title(), msg.grid)
		return m, nil

	case bookedMsg:
		if msg.err != nil {
			return m, tea.Batch(m.setStatus(apperrors.Message(msg.err), true), m.loadCurrent())
		}
		return m, tea.Batch(m.setStatus("Booked "+msg.appt.Label(), false), m.loadCurrent())

	case cancelledMsg:
		if msg.err != nil {
			return m, tea.Batch(m.setStatus(apperrors.Message(msg.err), true), m.loadCurrent())
		}
		return m, tea.Batch(m.setStatus("Cancelled "+msg.appt.Label(), false), m.loadCurrent())

	case constants.ConfirmationMsg:
		m.pick = &pickInput{}
		m.confirmAction = msg.Action
		m.form = forms.NewConfirm(msg.Message, &m.pick.ok)
		m.state = constants.StateConfirmCancel
		return m, m.form.Init()

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	if m.state != constants.StateGrid {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			if m.step(-1) {
				return m, m.loadCurrent()
			}
			return m, nil
		case key.Matches(msg, m.keys.Next):
			if m.step(1) {
				return m, m.loadCurrent()
			}
			return m, nil
		case key.Matches(msg, m.keys.Today):
			m.goToday()
			return m, m.loadCurrent()
		case key.Matches(msg, m.keys.Refresh):
			refresh(m.store)
			return m, tea.Batch(m.setStatus("Refreshed", false), m.loadCurrent())
		case key.Matches(msg, m.keys.Pick):
			return m.openDayPicker()
		case key.Matches(msg, m.keys.Add):
			return m.openBookingForm()
		case key.Matches(msg, m.keys.Delete):
			return m.openCancelPicker()
		}
	}

	var cmd tea.Cmd
	m.grid, cmd = m.grid.Update(msg)
	return m, cmd
}

func (m Model) loadCurrent() tea.Cmd {
	date := m.currentDate()
	if date == "" {
		return nil
	}
	return loadDay(m.svc, date)
}

func (m *Model) setStatus(text string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = text
	m.statusErr = isErr
	return clearStatusAfter(m.statusSeq)
}

func (m Model) openDayPicker() (tea.Model, tea.Cmd) {
	if len(m.days) == 0 {
		return m, m.setStatus("No working days configured", true)
	}
	m.pick = &pickInput{date: m.currentDate()}
	m.form = forms.NewDayPicker(m.days, m.dayLabel, &m.pick.date)
	m.state = constants.StatePickDay
	return m, m.form.Init()
}

func (m Model) openBookingForm() (tea.Model, tea.Cmd) {
	g, ok := m.grid.Grid()
	if !ok || g.Date != m.currentDate() {
		return m, m.setStatus("Day not loaded yet", true)
	}
	if g.Booked() >= len(g.Slots)*len(g.Barbers) {
		return m, m.setStatus("Day fully booked", true)
	}
	m.bookingInput = &forms.BookingInput{}
	m.form = forms.NewBookingForm(g, m.bookingInput)
	m.state = constants.StateBook
	return m, m.form.Init()
}

func (m Model) openCancelPicker() (tea.Model, tea.Cmd) {
	g, ok := m.grid.Grid()
	if !ok || g.Date != m.currentDate() {
		return m, m.setStatus("Day not loaded yet", true)
	}
	if len(g.Appointments) == 0 {
		return m, m.setStatus("No appointments to cancel", true)
	}
	m.cancelList = g.Appointments
	m.pick = &pickInput{}
	m.form = forms.NewCancelPicker(m.cancelList, &m.pick.choice)
	m.state = constants.StateCancel
	return m, m.form.Init()
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.closeForm()
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.completeForm()
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

func (m *Model) closeForm() {
	m.state = constants.StateGrid
	m.form = nil
	m.pick = nil
	m.confirmAction = nil
}

func (m Model) completeForm() (tea.Model, tea.Cmd) {
	state := m.state
	pick := m.pick
	if pick == nil {
		pick = &pickInput{}
	}
	m.state = constants.StateGrid
	m.form = nil
	m.pick = nil

	switch state {
	case constants.StatePickDay:
		if !m.goTo(pick.date) {
			return m, m.setStatus(fmt.Sprintf("%s is not a working day", pick.date), true)
		}
		return m, m.loadCurrent()

	case constants.StateBook:
		req := m.bookingInput.Request(m.currentDate())
		return m, bookCmd(m.svc, req)

	case constants.StateCancel:
		if pick.choice < 0 || pick.choice >= len(m.cancelList) {
			return m, nil
		}
		a := m.cancelList[pick.choice]
		svc := m.svc
		return m, func() tea.Msg {
			return constants.ConfirmationMsg{
				Message: fmt.Sprintf("Cancel %s?", a.Label()),
				Action:  func() tea.Cmd { return cancelCmd(svc, a) },
			}
		}

	case constants.StateConfirmCancel:
		action := m.confirmAction
		m.confirmAction = nil
		if pick.ok && action != nil {
			return m, action()
		}
		return m, m.setStatus("Nothing cancelled", false)
	}
	return m, nil
}
