package tui

import (
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/api/apitest"
	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/session"
	"github.com/julianstephens/habitrack/internal/tracker"
	"github.com/julianstephens/habitrack/internal/tui/components/habits"
	"github.com/julianstephens/habitrack/internal/tui/components/month"
)

const (
	testToken = "tok"
	today     = "2024-03-15"
)

func newTestModel(t *testing.T, token string) (Model, *apitest.Server, *tracker.Coordinator) {
	t.Helper()
	srv := apitest.NewServer(testToken)
	t.Cleanup(srv.Close)
	srv.SetToday(today)

	sess := session.New(session.NewMemoryStore(token))
	client, err := api.New(api.Options{BaseURL: srv.BaseURL(), HealthURL: srv.HealthURL(), Timeout: 5 * time.Second}, sess)
	require.NoError(t, err)
	coord := tracker.New(client, tracker.Options{Clock: clock.Fixed(today)})

	m := NewModel(coord, nil)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, srv, coord
}

// send delivers msg and returns the updated model, ignoring any command.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

// run delivers msg and then feeds each resulting command's message back in
// until no command is left. Spinner ticks and batches are not followed.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; msg != nil && i < 10; i++ {
		next, cmd := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
		if cmd == nil {
			return m
		}
		msg = cmd()
		if _, isBatch := msg.(tea.BatchMsg); isBatch {
			return m
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInitialLoad(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	read := srv.AddHabit("Read")
	srv.AddHabit("Run")
	srv.Complete(read, today)

	assert.Equal(t, 1, m.inFlight)
	m = run(t, m, loadAll(coord)())
	assert.Zero(t, m.inFlight)

	item, ok := m.habitsModel.Selected()
	require.True(t, ok)
	assert.Equal(t, "Read", item.Habit.Name)
	assert.True(t, item.Completed)

	view := m.View()
	assert.Contains(t, view, today)
	assert.Contains(t, view, "1/2 done")
}

func TestToggleFromList(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())

	m = run(t, m, runes("t"))

	assert.True(t, srv.HasCompletion(id, today))
	assert.True(t, coord.IsCompletedToday(id))
	assert.False(t, m.habitsModel.IsPending(id))
	assert.Equal(t, "✓ Read done for "+today, m.status)
	assert.False(t, m.statusIsError)
	item, _ := m.habitsModel.Selected()
	assert.True(t, item.Completed)
	assert.Zero(t, m.inFlight)
}

func TestToggleIgnoredWhilePending(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())

	next, cmd := m.Update(habits.ToggleHabitMsg{ID: id})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.habitsModel.IsPending(id))

	_, again := m.Update(habits.ToggleHabitMsg{ID: id})
	assert.Nil(t, again)

	m = run(t, m, cmd())
	assert.False(t, m.habitsModel.IsPending(id))
	assert.Equal(t, 1, srv.CountCalls("POST /habits/1/completions"))
}

func TestToggleFailureShowsError(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())
	srv.FailNext("POST /habits/1/completions", http.StatusInternalServerError, "Database unavailable")

	m = run(t, m, habits.ToggleHabitMsg{ID: id})

	assert.True(t, m.statusIsError)
	assert.Equal(t, "Database unavailable", m.status)
	assert.False(t, coord.IsCompletedToday(id))
	assert.Equal(t, constants.StateToday, m.state)
}

func TestUnauthorizedShowsSessionExpired(t *testing.T) {
	m, srv, coord := newTestModel(t, "stale")
	srv.AddHabit("Read")

	m = run(t, m, loadAll(coord)())

	assert.Equal(t, constants.StateSessionExpired, m.state)
	assert.True(t, m.Expired())
	assert.Contains(t, m.View(), "Press any key to exit.")

	_, cmd := m.Update(runes("x"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDeleteFlow(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	srv.AddHabit("Read")
	srv.AddHabit("Run")
	m = run(t, m, loadAll(coord)())

	m = run(t, m, runes("d"))
	require.Equal(t, constants.StateConfirmDelete, m.state)
	assert.Contains(t, m.View(), `Delete "Read"?`)

	m = run(t, m, runes("n"))
	assert.Equal(t, constants.StateToday, m.state)
	assert.Zero(t, srv.CountCalls("DELETE"))

	m = run(t, m, runes("d"))
	m = run(t, m, runes("y"))
	assert.Equal(t, constants.StateToday, m.state)
	assert.Equal(t, "Deleted Read", m.status)
	require.Len(t, coord.Habits(), 1)
	assert.Equal(t, "Run", coord.Habits()[0].Name)
}

func TestCalendarFlow(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	srv.Complete(id, "2024-03-13")
	m = run(t, m, loadAll(coord)())

	m = run(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, constants.StateCalendar, m.state)
	assert.Equal(t, id, m.monthModel.HabitID())
	assert.NotContains(t, m.View(), "Loading history...")

	// Yesterday, then toggle it on.
	m = run(t, m, runes("h"))
	m = run(t, m, runes("t"))
	assert.True(t, srv.HasCompletion(id, "2024-03-14"))
	assert.Equal(t, "✓ Read done for 2024-03-14", m.status)
	assert.Contains(t, m.View(), "2 day streak")

	// Tomorrow is disabled.
	m = run(t, m, runes("l"))
	m = run(t, m, runes("l"))
	srv.ResetCalls()
	m = run(t, m, runes("t"))
	assert.Empty(t, srv.Calls())

	m = run(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, constants.StateToday, m.state)
}

func TestCalendarToggleTodayUpdatesList(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())
	m = run(t, m, habits.OpenCalendarMsg{Habit: coord.Habits()[0]})

	m = run(t, m, month.ToggleDateMsg{HabitID: id, Date: today})
	m = run(t, m, month.CloseMsg{})

	item, ok := m.habitsModel.Selected()
	require.True(t, ok)
	assert.True(t, item.Completed)
}

func TestCalendarCloseRefreshesListStreaks(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	srv.Complete(id, today)
	m = run(t, m, loadAll(coord)())
	opened := coord.Habits()[0]
	require.Equal(t, 1, *opened.CurrentStreak)

	m = run(t, m, habits.OpenCalendarMsg{Habit: opened})
	m = run(t, m, month.ToggleDateMsg{HabitID: id, Date: "2024-03-14"})
	assert.Equal(t, 2, coord.Streaks(id).Current())

	m = run(t, m, month.CloseMsg{})
	assert.Equal(t, constants.StateToday, m.state)
	assert.Zero(t, m.inFlight)
	item, ok := m.habitsModel.Selected()
	require.True(t, ok)
	current, _ := item.Habit.Streaks()
	assert.Equal(t, 2, current)

	// Reopening with the habit object from before the toggle keeps the
	// counters already fetched.
	m = send(t, m, habits.OpenCalendarMsg{Habit: opened})
	assert.Equal(t, 2, coord.Streaks(id).Current())
	assert.Contains(t, m.View(), "2 day streak")
}

func TestCalendarCloseWithoutToggleSkipsReload(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())
	m = run(t, m, habits.OpenCalendarMsg{Habit: coord.Habits()[0]})

	_, cmd := m.Update(month.CloseMsg{})
	assert.Nil(t, cmd)
}

func TestCalendarHistoryFailureIsShown(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	id := srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())
	srv.FailNext("GET /habits/1/completions", http.StatusInternalServerError, "Database unavailable")

	m = run(t, m, habits.OpenCalendarMsg{Habit: coord.Habits()[0]})
	require.Equal(t, constants.StateCalendar, m.state)
	assert.Contains(t, m.View(), "Failed to load completions")
	assert.Equal(t, "Database unavailable", m.status)
	assert.True(t, m.statusIsError)

	m = run(t, m, runes("t"))
	assert.True(t, srv.HasCompletion(id, today))
	assert.NotContains(t, m.View(), "Failed to load completions")
}

func TestAddHabitCancel(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	m = run(t, m, loadAll(coord)())

	m = send(t, m, habits.AddHabitMsg{})
	require.Equal(t, constants.StateAddHabit, m.state)
	require.NotNil(t, m.form)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, constants.StateToday, m.state)
	assert.Zero(t, srv.CountCalls("POST /habits"))
}

func TestCreatedHabitIsSelected(t *testing.T) {
	m, srv, coord := newTestModel(t, testToken)
	srv.AddHabit("Read")
	m = run(t, m, loadAll(coord)())

	m = run(t, m, createHabit(coord, "Write", "")())

	assert.Equal(t, "Added Write", m.status)
	item, ok := m.habitsModel.Selected()
	require.True(t, ok)
	assert.Equal(t, "Write", item.Habit.Name)
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t, testToken)

	next, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, next.(Model).quitting)
}
