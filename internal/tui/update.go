package tui

import (
	stderrors "errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/constants"
	apperrors "github.com/julianstephens/habitrack/internal/errors"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/tui/components/habits"
	"github.com/julianstephens/habitrack/internal/tui/components/month"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.habitsModel.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg, toggledMsg, createdMsg, deletedMsg, historyMsg, dateToggledMsg:
		return m.handleResult(msg)
	}

	switch m.state {
	case constants.StateSessionExpired:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case constants.StateAddHabit:
		return m.updateAddHabit(msg)
	case constants.StateConfirmDelete:
		return m.updateConfirmDelete(msg)
	case constants.StateCalendar:
		return m.updateCalendar(msg)
	default:
		return m.updateToday(msg)
	}
}

func (m Model) updateToday(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case habits.ToggleHabitMsg:
		if m.habitsModel.IsPending(msg.ID) {
			return m, nil
		}
		m.habitsModel.SetPending(msg.ID, true)
		m.inFlight++
		return m, toggleToday(m.tracker, msg.ID)

	case habits.AddHabitMsg:
		m.habitForm = &HabitFormModel{}
		m.form = NewHabitForm(m.habitForm, m.validator.HabitName)
		m.state = constants.StateAddHabit
		return m, m.form.Init()

	case habits.DeleteHabitMsg:
		h := msg.Habit
		m.habitToDelete = &h
		m.state = constants.StateConfirmDelete
		return m, nil

	case habits.OpenCalendarMsg:
		m.tracker.SeedStreaks(msg.Habit)
		m.monthModel = month.New(m.tracker.Clock(), msg.Habit)
		m.monthModel.SetStreaks(m.tracker.Streaks(msg.Habit.ID).Pair())
		m.calendarDirty = false
		m.state = constants.StateCalendar
		m.inFlight++
		return m, loadHistory(m.tracker, msg.Habit.ID)

	case habits.RefreshMsg:
		m.inFlight++
		return m, loadAll(m.tracker)
	}

	var cmd tea.Cmd
	m.habitsModel, cmd = m.habitsModel.Update(msg)
	return m, cmd
}

func (m Model) updateCalendar(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if key.Matches(msg, m.keys.Help) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case month.CloseMsg:
		m.state = constants.StateToday
		m.refreshList()
		if !m.calendarDirty {
			return m, nil
		}
		// Streak counters in the list come from the habit list.
		m.calendarDirty = false
		m.inFlight++
		return m, loadAll(m.tracker)

	case month.ToggleDateMsg:
		m.monthModel.SetPending(true)
		m.inFlight++
		return m, toggleDate(m.tracker, msg.HabitID, msg.Date)
	}

	var cmd tea.Cmd
	m.monthModel, cmd = m.monthModel.Update(msg)
	return m, cmd
}

func (m Model) updateAddHabit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = constants.StateToday
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		m.state = constants.StateToday
		m.inFlight++
		cmds = append(cmds, createHabit(m.tracker, m.habitForm.Name, m.habitForm.Description))
	case huh.StateAborted:
		m.state = constants.StateToday
	}
	return m, tea.Batch(cmds...)
}

func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Confirm):
		h := m.habitToDelete
		m.habitToDelete = nil
		m.state = constants.StateToday
		if h == nil {
			return m, nil
		}
		m.inFlight++
		return m, deleteHabit(m.tracker, *h)
	case key.Matches(keyMsg, m.keys.Cancel):
		m.habitToDelete = nil
		m.state = constants.StateToday
	}
	return m, nil
}

// handleResult applies the outcome of an asynchronous call, whatever screen
// is showing.
func (m Model) handleResult(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.inFlight > 0 {
		m.inFlight--
	}

	switch msg := msg.(type) {
	case loadedMsg:
		if m.expire(msg.err) {
			return m, nil
		}
		m.refreshList()
		if msg.err != nil {
			m.setStatus("Couldn't load habits: "+apperrors.Message(msg.err, "unknown error"), true)
		}

	case toggledMsg:
		m.habitsModel.SetPending(msg.habitID, false)
		if m.expire(msg.err) {
			return m, nil
		}
		m.refreshList()
		if msg.err != nil {
			m.setStatus(apperrors.Message(msg.err, "Failed to update habit"), true)
			return m, nil
		}
		m.setStatus(m.toggleStatus(msg.habitID, m.tracker.Today(), msg.completed), false)

	case createdMsg:
		if m.expire(msg.err) {
			return m, nil
		}
		if msg.err != nil {
			m.setStatus(apperrors.Message(msg.err, "Failed to create habit"), true)
			return m, nil
		}
		m.refreshList()
		m.habitsModel.Select(msg.habit.ID)
		m.setStatus(fmt.Sprintf("Added %s", msg.habit.Name), false)

	case deletedMsg:
		if m.expire(msg.err) {
			return m, nil
		}
		m.refreshList()
		if msg.err != nil {
			m.setStatus(apperrors.Message(msg.err, "Failed to delete habit"), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Deleted %s", msg.habit.Name), false)

	case historyMsg:
		if m.expire(msg.err) {
			return m, nil
		}
		m.syncCalendar(msg.habitID)
		if msg.err != nil && m.state == constants.StateCalendar && m.monthModel.HabitID() == msg.habitID {
			m.monthModel.SetLoadError("Failed to load completions")
			m.setStatus(apperrors.Message(msg.err, "Failed to load completions"), true)
		}

	case dateToggledMsg:
		if m.state == constants.StateCalendar && m.monthModel.HabitID() == msg.habitID {
			m.monthModel.SetPending(false)
		}
		if m.expire(msg.err) {
			return m, nil
		}
		m.syncCalendar(msg.habitID)
		m.refreshList()
		if msg.err != nil {
			m.setStatus(apperrors.Message(msg.err, "Failed to update habit"), true)
			return m, nil
		}
		m.setStatus(m.toggleStatus(msg.habitID, msg.date, msg.completed), false)
		if m.state != constants.StateCalendar {
			// The calendar closed before the toggle landed.
			m.inFlight++
			return m, loadAll(m.tracker)
		}
		m.calendarDirty = true
	}
	return m, nil
}

// expire switches to the session-expired screen when err is an
// authorization failure.
func (m *Model) expire(err error) bool {
	if !stderrors.Is(err, api.ErrUnauthorized) {
		return false
	}
	logger.Warn("Session expired during TUI session")
	m.state = constants.StateSessionExpired
	m.form = nil
	m.habitToDelete = nil
	return true
}

func (m *Model) syncCalendar(habitID int64) {
	if m.state != constants.StateCalendar || m.monthModel.HabitID() != habitID {
		return
	}
	m.monthModel.SetHistory(m.tracker.History(habitID))
	m.monthModel.SetStreaks(m.tracker.Streaks(habitID).Pair())
}

func (m Model) toggleStatus(habitID int64, date string, completed bool) string {
	name := fmt.Sprintf("habit %d", habitID)
	if h, ok := m.tracker.Habit(habitID); ok {
		name = h.Name
	}
	if completed {
		return fmt.Sprintf("✓ %s done for %s", name, date)
	}
	return fmt.Sprintf("○ %s unmarked for %s", name, date)
}
