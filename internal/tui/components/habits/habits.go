package habits

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/streaks"
)

type AddHabitMsg struct{}

type ToggleHabitMsg struct {
	ID int64
}

type DeleteHabitMsg struct {
	Habit models.Habit
}

type OpenCalendarMsg struct {
	Habit models.Habit
}

type RefreshMsg struct{}

var streakColors = map[streaks.Level]lipgloss.Color{
	streaks.LevelNone:     lipgloss.Color("240"),
	streaks.LevelStarting: lipgloss.Color("39"),
	streaks.LevelBuilding: lipgloss.Color("42"),
	streaks.LevelStrong:   lipgloss.Color("214"),
	streaks.LevelOnFire:   lipgloss.Color("196"),
}

// StreakStyle colors a streak by its band.
func StreakStyle(streak int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(streakColors[streaks.Band(streak)])
}

type Item struct {
	Habit     models.Habit
	Completed bool
	Pending   bool
}

func (i Item) Title() string {
	mark := "○ "
	if i.Completed {
		mark = "✓ "
	}
	if i.Pending {
		mark = "… "
	}
	return mark + i.Habit.Name
}

func (i Item) Description() string {
	current, longest := i.Habit.Streaks()
	streak := StreakStyle(current).Render(fmt.Sprintf("🔥 %d", current))
	desc := fmt.Sprintf("%s | best %d", streak, longest)
	if d := i.Habit.DescriptionText(); d != "" {
		desc += " | " + d
	}
	return desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Toggle   key.Binding
	Add      key.Binding
	Delete   key.Binding
	Calendar key.Binding
	Refresh  key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("t", " "),
			key.WithHelp("t/space", "toggle today"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Calendar: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "calendar"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
	}
}

type Model struct {
	list    list.Model
	keys    KeyMap
	pending map[int64]bool
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Today"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	// Quitting is handled by the parent model.
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Delete, keys.Calendar}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Toggle, keys.Add, keys.Delete, keys.Calendar, keys.Refresh}
	}

	return Model{list: l, keys: keys, pending: map[int64]bool{}}
}

func (m Model) Keys() KeyMap { return m.keys }

// SetHabits replaces the list contents, keeping the selection on the same
// habit when it is still present.
func (m *Model) SetHabits(habits []models.Habit, done models.CompletionSet) {
	selected, hasSelection := m.Selected()

	items := make([]list.Item, len(habits))
	for i, h := range habits {
		items[i] = Item{Habit: h, Completed: done.Has(h.ID), Pending: m.pending[h.ID]}
	}
	m.list.SetItems(items)

	if hasSelection {
		m.Select(selected.Habit.ID)
	}
}

// Select moves the cursor to the habit with id, if listed.
func (m *Model) Select(id int64) bool {
	for i, it := range m.list.Items() {
		if it.(Item).Habit.ID == id {
			m.list.Select(i)
			return true
		}
	}
	return false
}

func (m Model) Selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

// SetPending marks a habit as having a toggle in flight.
func (m *Model) SetPending(id int64, pending bool) {
	if pending {
		m.pending[id] = true
	} else {
		delete(m.pending, id)
	}
	for i, it := range m.list.Items() {
		item := it.(Item)
		if item.Habit.ID == id {
			item.Pending = pending
			m.list.SetItem(i, item)
		}
	}
}

func (m Model) IsPending(id int64) bool { return m.pending[id] }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			return m, func() tea.Msg { return AddHabitMsg{} }
		case key.Matches(msg, m.keys.Refresh):
			return m, func() tea.Msg { return RefreshMsg{} }
		case key.Matches(msg, m.keys.Toggle):
			if i, ok := m.Selected(); ok && !i.Pending {
				return m, func() tea.Msg { return ToggleHabitMsg{ID: i.Habit.ID} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Delete):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg { return DeleteHabitMsg{Habit: i.Habit} }
			}
			return m, nil
		case key.Matches(msg, m.keys.Calendar):
			if i, ok := m.Selected(); ok {
				return m, func() tea.Msg { return OpenCalendarMsg{Habit: i.Habit} }
			}
			return m, nil
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
