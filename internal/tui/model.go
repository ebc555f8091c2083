package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/calendar"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/constants"
	"github.com/julianstephens/barberbook/internal/models"
	"github.com/julianstephens/barberbook/internal/storage"
	"github.com/julianstephens/barberbook/internal/tui/components/grid"
	"github.com/julianstephens/barberbook/internal/tui/forms"
)

// pickInput holds the values the open huh form writes to. It lives behind a
// pointer because Update works on copies of Model.
type pickInput struct {
	date   string
	choice int
	ok     bool
}

type Model struct {
	svc      *booking.Service
	store    storage.Provider
	dayLabel func(time.Time) string
	now      func() time.Time

	state constants.SessionState
	keys  KeyMap
	help  help.Model
	grid  grid.Model

	year int
	days []time.Time
	day  int

	form          *huh.Form
	bookingInput  *forms.BookingInput
	pick          *pickInput
	cancelList    []models.Appointment
	confirmAction func() tea.Cmd

	status    string
	statusErr bool
	statusSeq int

	quitting bool
	width    int
	height   int
}

// NewModel opens on today if the shop works today, otherwise on the first
// working day of the year.
func NewModel(ctx *cli.Context) Model {
	now := ctx.Now
	if now == nil {
		now = time.Now
	}
	m := Model{
		svc:      ctx.Service,
		store:    ctx.Store,
		dayLabel: ctx.DayLabel,
		now:      now,
		state:    constants.StateGrid,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		grid:     grid.New(0, 0),
	}
	m.goToday()
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadCurrent()
}

func (m *Model) today() time.Time {
	return calendar.Truncate(m.now())
}

func (m *Model) setYear(year int) {
	if year == m.year && m.days != nil {
		return
	}
	m.year = year
	m.days = m.svc.WorkingDays(year)
}

func (m *Model) goToday() {
	today := m.today()
	m.setYear(today.Year())
	m.day = calendar.DefaultDay(m.days, today)
}

// current returns the selected date, or false when the year has no working days.
func (m Model) current() (time.Time, bool) {
	if m.day < 0 || m.day >= len(m.days) {
		return time.Time{}, false
	}
	return m.days[m.day], true
}

func (m Model) currentDate() string {
	d, ok := m.current()
	if !ok {
		return ""
	}
	return calendar.FormatDate(d)
}

func (m Model) title() string {
	d, ok := m.current()
	if !ok {
		return "No working days configured"
	}
	return m.dayLabel(d)
}

// step moves to the previous or next working day, crossing into the
// neighbouring year when needed.
func (m *Model) step(delta int) bool {
	if len(m.days) == 0 {
		return false
	}
	next := m.day + delta
	if next >= 0 && next < len(m.days) {
		m.day = next
		return true
	}

	year := m.year + delta
	days := m.svc.WorkingDays(year)
	if len(days) == 0 {
		return false
	}
	m.year = year
	m.days = days
	if delta < 0 {
		m.day = len(days) - 1
	} else {
		m.day = 0
	}
	return true
}

// goTo selects date if it is a working day.
func (m *Model) goTo(date string) bool {
	d, err := calendar.ParseDate(date)
	if err != nil {
		return false
	}
	m.setYear(d.Year())
	for i, day := range m.days {
		if day.Equal(d) {
			m.day = i
			return true
		}
	}
	return false
}
