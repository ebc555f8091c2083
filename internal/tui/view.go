package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/barberbook/internal/constants"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateGrid:
		content = m.grid.View()
	default:
		if m.form != nil {
			content = docStyle.Render(m.form.View())
		}
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		content,
		m.viewStatus(),
		m.help.View(m.keys),
	)
}

func (m Model) viewHeader() string {
	header := titleStyle.Render(constants.AppName + " • " + m.title())
	if len(m.days) > 0 {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header,
			positionStyle.Render(fmt.Sprintf("%d/%d", m.day+1, len(m.days))))
	}
	return header
}

func (m Model) viewStatus() string {
	switch {
	case m.status == "":
		return ""
	case m.statusErr:
		return errorStyle.Render("✗ " + m.status)
	default:
		return successStyle.Render("✓ " + m.status)
	}
}
