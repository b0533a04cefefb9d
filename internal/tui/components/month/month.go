// Package month renders one habit's completion calendar and lets the user
// move a day cursor and toggle past or present days.
package month

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitrack/internal/calendar"
	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/streaks"
	"github.com/julianstephens/habitrack/internal/tui/components/habits"
)

type ToggleDateMsg struct {
	HabitID int64
	Date    string
}

type CloseMsg struct{}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42"))
	todayStyle     = lipgloss.NewStyle().Bold(true).Underline(true)
	futureStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	selectedStyle  = lipgloss.NewStyle().Reverse(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type KeyMap struct {
	PrevDay   key.Binding
	NextDay   key.Binding
	PrevWeek  key.Binding
	NextWeek  key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Toggle    key.Binding
	Back      key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		PrevDay: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev day"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next day"),
		),
		PrevWeek: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev week"),
		),
		NextWeek: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next week"),
		),
		PrevMonth: key.NewBinding(
			key.WithKeys("[", "p"),
			key.WithHelp("[/p", "prev month"),
		),
		NextMonth: key.NewBinding(
			key.WithKeys("]", "n"),
			key.WithHelp("]/n", "next month"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t", " ", "enter"),
			key.WithHelp("t/space", "toggle day"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc", "back"),
		),
	}
}

func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.PrevDay, k.NextDay, k.PrevWeek, k.NextWeek, k.PrevMonth, k.NextMonth, k.Toggle, k.Back}
}

type Model struct {
	clk     clock.Clock
	keys    KeyMap
	habit   models.Habit
	cursor  calendar.Cursor
	history []models.Completion
	streak  streaks.Pair
	loaded  bool
	loadErr string
	pending bool
}

// New opens the calendar on today's month for habit.
func New(clk clock.Clock, habit models.Habit) Model {
	current, longest := habit.Streaks()
	return Model{
		clk:    clk,
		keys:   DefaultKeyMap(),
		habit:  habit,
		cursor: calendar.NewCursor(clk),
		streak: streaks.Pair{Current: current, Longest: longest},
	}
}

func (m Model) Keys() KeyMap            { return m.keys }
func (m Model) HabitID() int64          { return m.habit.ID }
func (m Model) Cursor() calendar.Cursor { return m.cursor }

// SetHistory replaces the displayed completions.
func (m *Model) SetHistory(history []models.Completion) {
	m.history = history
	m.loaded = true
	m.loadErr = ""
}

// SetLoadError shows msg in place of the history. Toggles stay enabled.
func (m *Model) SetLoadError(msg string) {
	m.loaded = true
	m.loadErr = msg
}

func (m *Model) SetStreaks(p streaks.Pair) { m.streak = p }

// SetPending blocks toggles while one is in flight.
func (m *Model) SetPending(pending bool) { m.pending = pending }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }
	case key.Matches(keyMsg, m.keys.PrevDay):
		m.cursor = m.cursor.MoveDays(-1)
	case key.Matches(keyMsg, m.keys.NextDay):
		m.cursor = m.cursor.MoveDays(1)
	case key.Matches(keyMsg, m.keys.PrevWeek):
		m.cursor = m.cursor.MoveDays(-7)
	case key.Matches(keyMsg, m.keys.NextWeek):
		m.cursor = m.cursor.MoveDays(7)
	case key.Matches(keyMsg, m.keys.PrevMonth):
		m.cursor = m.cursor.PrevMonth()
	case key.Matches(keyMsg, m.keys.NextMonth):
		m.cursor = m.cursor.NextMonth()
	case key.Matches(keyMsg, m.keys.Toggle):
		date := m.cursor.Selected()
		// Future days are disabled.
		if m.pending || !m.loaded || calendar.IsFutureDate(m.clk, date) {
			return m, nil
		}
		id := m.habit.ID
		return m, func() tea.Msg { return ToggleDateMsg{HabitID: id, Date: date} }
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.habit.Name))
	if d := m.habit.DescriptionText(); d != "" {
		b.WriteString("  " + mutedStyle.Render(d))
	}
	b.WriteString("\n\n")

	b.WriteString(lipgloss.PlaceHorizontal(27, lipgloss.Center, m.cursor.Title()) + "\n")
	var header []string
	for _, d := range calendar.DayNames {
		header = append(header, headerStyle.Render(d))
	}
	b.WriteString(strings.Join(header, " ") + "\n")

	selected := m.cursor.Selected()
	cells := m.cursor.Cells(m.clk, m.history)
	for i, cell := range cells {
		b.WriteString(renderCell(cell, cell.Date == selected))
		if i%7 == 6 || i == len(cells)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")
	b.WriteString(completedStyle.Render(" ✓ ") + " Completed  " + todayStyle.Render("Today") + "\n\n")

	switch {
	case !m.loaded:
		b.WriteString(mutedStyle.Render("Loading history...") + "\n")
	case m.loadErr != "":
		b.WriteString(errorStyle.Render(m.loadErr) + "\n")
	}
	streak := habits.StreakStyle(m.streak.Current).
		Render(fmt.Sprintf("%d day streak (%s)", m.streak.Current, streaks.Band(m.streak.Current)))
	b.WriteString("Current: " + streak + "\n")
	b.WriteString(fmt.Sprintf("Longest: %d days\n", m.streak.Longest))
	return b.String()
}

func renderCell(cell calendar.Cell, selected bool) string {
	if cell.Blank {
		return "   "
	}
	text := fmt.Sprintf("%3d", cell.Day)
	style := lipgloss.NewStyle()
	switch {
	case cell.Future:
		style = futureStyle
	case cell.Completed:
		style = completedStyle
	}
	if cell.Today {
		style = style.Inherit(todayStyle)
	}
	if selected {
		style = style.Inherit(selectedStyle)
	}
	return style.Render(text)
}
