package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitrack/internal/constants"
	apperrors "github.com/julianstephens/habitrack/internal/errors"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateSessionExpired:
		return m.viewSessionExpired()
	case constants.StateCalendar:
		content = docStyle.Render(m.monthModel.View())
	case constants.StateAddHabit:
		content = docStyle.Render(m.form.View())
	case constants.StateConfirmDelete:
		content = m.viewConfirmDelete()
	default:
		content = docStyle.Render(m.habitsModel.View())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewHeader(),
		content,
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewHeader() string {
	tabs := []string{activeTabStyle.Render(constants.AppName)}

	done := m.tracker.TodaySet()
	total := 0
	recorded := 0
	for _, h := range m.tracker.Habits() {
		total++
		if done.Has(h.ID) {
			recorded++
		}
	}
	tabs = append(tabs, inactiveTabStyle.Render(fmt.Sprintf("%s · %d/%d done", m.tracker.Today(), recorded, total)))

	if m.inFlight > 0 {
		tabs = append(tabs, inactiveTabStyle.Render(m.spinner.View()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusIsError {
		return warningStyle.Render("  " + m.status)
	}
	return successStyle.Render("  " + m.status)
}

func (m Model) viewConfirmDelete() string {
	name := ""
	if m.habitToDelete != nil {
		name = m.habitToDelete.Name
	}
	return lipgloss.Place(m.width, max(m.height-4, 0),
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(fmt.Sprintf("Delete %q?", name)),
			"Its completion history will be lost.",
			"",
			"[y] Yes",
			"[n] No",
		),
	)
}

func (m Model) viewSessionExpired() string {
	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center,
			dangerStyle.Render(apperrors.SessionExpiredMessage),
			"",
			"Press any key to exit.",
		),
	)
}
