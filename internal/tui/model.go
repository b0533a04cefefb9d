package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/tracker"
	"github.com/julianstephens/habitrack/internal/tui/components/habits"
	"github.com/julianstephens/habitrack/internal/tui/components/month"
	"github.com/julianstephens/habitrack/internal/validation"
)

// HabitFormModel backs the create-habit form.
type HabitFormModel struct {
	Name        string
	Description string
}

type Model struct {
	tracker       *tracker.Coordinator
	validator     *validation.Validator
	state         constants.SessionState
	keys          KeyMap
	help          help.Model
	spinner       spinner.Model
	habitsModel   habits.Model
	monthModel    month.Model
	form          *huh.Form
	habitForm     *HabitFormModel
	habitToDelete *models.Habit
	// calendarDirty is set once a date is toggled in the open calendar; the
	// list is reloaded when the calendar closes.
	calendarDirty bool
	inFlight      int
	status        string
	statusIsError bool
	quitting      bool
	width         int
	height        int
}

// NewModel renders whatever the coordinator already holds (for example a
// restored snapshot) and refreshes from the server in Init.
func NewModel(t *tracker.Coordinator, v *validation.Validator) Model {
	if v == nil {
		v = validation.New()
	}
	hm := habits.New(0, 0)
	hm.SetHabits(t.Habits(), t.TodaySet())

	return Model{
		tracker:     t,
		validator:   v,
		state:       constants.StateToday,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		habitsModel: hm,
		inFlight:    1, // the initial load started by Init
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadAll(m.tracker))
}

func (m Model) ShortHelp() []key.Binding {
	switch m.state {
	case constants.StateCalendar:
		k := m.monthModel.Keys()
		return []key.Binding{k.PrevDay, k.NextDay, k.PrevMonth, k.NextMonth, k.Toggle, k.Back, m.keys.Quit}
	case constants.StateToday:
		k := m.habitsModel.Keys()
		return []key.Binding{m.keys.Up, m.keys.Down, k.Toggle, k.Add, k.Delete, k.Calendar, m.keys.Quit, m.keys.Help}
	}
	return nil
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Quit, m.keys.Help}
	switch m.state {
	case constants.StateCalendar:
		return [][]key.Binding{m.monthModel.Keys().Bindings(), global}
	case constants.StateToday:
		k := m.habitsModel.Keys()
		return [][]key.Binding{
			{m.keys.Up, m.keys.Down},
			{k.Toggle, k.Add, k.Delete, k.Calendar, k.Refresh},
			global,
		}
	}
	return nil
}

func (m *Model) setStatus(msg string, isError bool) {
	m.status = msg
	m.statusIsError = isError
}

// refreshList redraws the today list from the coordinator's current state.
func (m *Model) refreshList() {
	m.habitsModel.SetHabits(m.tracker.Habits(), m.tracker.TodaySet())
}

// Expired reports whether the session ended while the TUI was running.
func (m Model) Expired() bool {
	return m.state == constants.StateSessionExpired
}
