package grid

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/barberbook/internal/booking"
)

const freeCell = "·"

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Padding(0, 1)

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	bookedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(0, 1)

	freeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	extraStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)
)

// Table renders g as slots by barbers. Rows whose slot or barber is not part
// of the grid are listed underneath.
func Table(g booking.Grid) string {
	headers := append([]string{"Time"}, g.Barbers...)
	rows := make([][]string, len(g.Slots))
	for i, slot := range g.Slots {
		row := make([]string, 0, len(g.Barbers)+1)
		row = append(row, slot)
		for j := range g.Barbers {
			cell := g.Cells[i][j]
			if cell == "" {
				cell = freeCell
			}
			row = append(row, cell)
		}
		rows[i] = row
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return slotStyle
			case row >= 0 && row < len(g.Slots) && col-1 < len(g.Barbers) && g.Cells[row][col-1] != "":
				return bookedStyle
			default:
				return freeStyle
			}
		})

	var b strings.Builder
	b.WriteString(t.Render())
	if extra := Outside(g); len(extra) > 0 {
		b.WriteString("\n")
		b.WriteString(extraStyle.Render("Outside the grid:"))
		for _, line := range extra {
			b.WriteString("\n  " + line)
		}
	}
	return b.String()
}

// Outside lists appointments that no grid cell shows, either because their
// slot or barber is unknown or because an earlier row took the cell.
func Outside(g booking.Grid) []string {
	var out []string
	for _, a := range g.Unplaced() {
		out = append(out, a.Label())
	}
	return out
}

// Model is a scrollable day grid.
type Model struct {
	viewport viewport.Model
	grid     *booking.Grid
	title    string
	err      error
	width    int
	height   int
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.Render()
}

// SetGrid shows g under title.
func (m *Model) SetGrid(title string, g booking.Grid) {
	m.title = title
	m.grid = &g
	m.err = nil
	m.Render()
}

// SetError replaces the grid with err until the next SetGrid.
func (m *Model) SetError(title string, err error) {
	m.title = title
	m.grid = nil
	m.err = err
	m.Render()
}

// Grid returns the grid on display, if any.
func (m Model) Grid() (booking.Grid, bool) {
	if m.grid == nil {
		return booking.Grid{}, false
	}
	return *m.grid, true
}

func (m *Model) Render() {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.title))
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(fmt.Sprintf("Could not load appointments: %v", m.err))
	case m.grid == nil:
		b.WriteString("Loading...")
	default:
		b.WriteString(Table(*m.grid))
		b.WriteString("\n")
		b.WriteString(slotStyle.Render(fmt.Sprintf("%d booked, %d free", m.grid.Booked(), len(m.grid.Slots)*len(m.grid.Barbers)-m.grid.Booked())))
	}
	m.viewport.SetContent(b.String())
}
