package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/tracker"
)

// Results of the asynchronous coordinator calls. Each carries the error the
// call returned; state is read back from the coordinator on receipt.
type (
	loadedMsg struct {
		err error
	}
	toggledMsg struct {
		habitID   int64
		completed bool
		err       error
	}
	createdMsg struct {
		habit models.Habit
		err   error
	}
	deletedMsg struct {
		habit models.Habit
		err   error
	}
	historyMsg struct {
		habitID int64
		err     error
	}
	dateToggledMsg struct {
		habitID   int64
		date      string
		completed bool
		err       error
	}
)

func loadAll(t *tracker.Coordinator) tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: t.LoadAll(context.Background())}
	}
}

func toggleToday(t *tracker.Coordinator, id int64) tea.Cmd {
	return func() tea.Msg {
		completed, err := t.ToggleToday(context.Background(), id)
		return toggledMsg{habitID: id, completed: completed, err: err}
	}
}

func createHabit(t *tracker.Coordinator, name, description string) tea.Cmd {
	return func() tea.Msg {
		h, err := t.CreateHabit(context.Background(), name, description)
		return createdMsg{habit: h, err: err}
	}
}

func deleteHabit(t *tracker.Coordinator, h models.Habit) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{habit: h, err: t.DeleteHabit(context.Background(), h.ID)}
	}
}

// loadHistory fetches a habit's completions and then its streak counters.
func loadHistory(t *tracker.Coordinator, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if _, err := t.FetchHistory(ctx, id); err != nil {
			return historyMsg{habitID: id, err: err}
		}
		return historyMsg{habitID: id, err: t.RefreshStreaks(ctx, id)}
	}
}

func toggleDate(t *tracker.Coordinator, id int64, date string) tea.Cmd {
	return func() tea.Msg {
		completed, err := t.ToggleDate(context.Background(), id, date)
		return dateToggledMsg{habitID: id, date: date, completed: completed, err: err}
	}
}
