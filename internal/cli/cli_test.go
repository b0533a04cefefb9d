package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/api/apitest"
	"github.com/julianstephens/habitrack/internal/calendar"
	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/config"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/session"
	"github.com/julianstephens/habitrack/internal/storage"
	"github.com/julianstephens/habitrack/internal/tracker"
	"github.com/julianstephens/habitrack/internal/validation"
)

const (
	testToken = "tok"
	today     = "2024-03-15"
)

type fakePrompter struct {
	confirm   bool
	input     validation.SignupInput
	confirmed []string
}

func (p *fakePrompter) Confirm(title string) (bool, error) {
	p.confirmed = append(p.confirmed, title)
	return p.confirm, nil
}

func (p *fakePrompter) Credentials(in validation.SignupInput, _ bool) (validation.SignupInput, error) {
	if in.Email == "" {
		in.Email = p.input.Email
	}
	if in.Password == "" {
		in.Password = p.input.Password
	}
	if in.Confirm == "" {
		in.Confirm = p.input.Confirm
	}
	return in, nil
}

type testEnv struct {
	srv      *apitest.Server
	store    *session.MemoryStore
	out      *bytes.Buffer
	prompter *fakePrompter
	ctx      *Context
}

func setupTestContext(t *testing.T, token string) *testEnv {
	t.Helper()
	srv := apitest.NewServer(testToken)
	t.Cleanup(srv.Close)
	srv.SetToday(today)

	cfg := config.Default()
	cfg.APIURL = srv.BaseURL()
	cfg.HealthURL = srv.HealthURL()
	cfg.Cache = false

	store := session.NewMemoryStore(token)
	sess := session.New(store)
	client, err := api.New(api.Options{
		BaseURL:   cfg.APIURL,
		HealthURL: cfg.HealthURL,
		Timeout:   5 * time.Second,
	}, sess)
	require.NoError(t, err)

	v := validation.New()
	out := &bytes.Buffer{}
	prompter := &fakePrompter{}
	return &testEnv{
		srv:      srv,
		store:    store,
		out:      out,
		prompter: prompter,
		ctx: &Context{
			Ctx:       context.Background(),
			Config:    cfg,
			Session:   sess,
			Client:    client,
			Tracker:   tracker.New(client, tracker.Options{Clock: clock.Fixed(today), Validator: v}),
			Validator: v,
			Prompter:  prompter,
			Out:       out,
		},
	}
}

func TestCommandsRequireSession(t *testing.T) {
	e := setupTestContext(t, "")

	commands := map[string]interface{ Run(*Context) error }{
		"today":    &TodayCmd{},
		"toggle":   &ToggleCmd{ID: 1},
		"habits":   &HabitListCmd{},
		"add":      &HabitAddCmd{Name: "Read"},
		"calendar": &CalendarCmd{ID: 1},
		"mark":     &MarkCmd{ID: 1},
	}
	for name, cmd := range commands {
		t.Run(name, func(t *testing.T) {
			err := cmd.Run(e.ctx)
			assert.ErrorIs(t, err, session.ErrNoToken)
		})
	}
	assert.Empty(t, e.srv.Calls(), "no request may be sent without a session")
}

func TestLoginCmd(t *testing.T) {
	e := setupTestContext(t, "")
	e.srv.AddUser("me@example.com", "secret")
	e.prompter.input = validation.SignupInput{Password: "secret"}

	cmd := &LoginCmd{Email: " me@example.com "}
	require.NoError(t, cmd.Run(e.ctx))

	assert.Contains(t, e.out.String(), "✓ Logged in as me@example.com")
	token, err := e.store.Get()
	require.NoError(t, err)
	assert.Equal(t, testToken, token)
}

func TestLoginCmdRejected(t *testing.T) {
	e := setupTestContext(t, "")
	e.srv.AddUser("me@example.com", "secret")

	err := (&LoginCmd{Email: "me@example.com", Password: "wrong"}).Run(e.ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, e.ctx.Session.Authenticated())
}

func TestLoginCmdValidation(t *testing.T) {
	e := setupTestContext(t, "")

	err := (&LoginCmd{Email: "not-an-email", Password: "x"}).Run(e.ctx)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Please enter a valid email address", verr.Message)
	assert.Empty(t, e.srv.Calls())
}

func TestSignupCmd(t *testing.T) {
	e := setupTestContext(t, "")
	e.prompter.input = validation.SignupInput{Password: "pw", Confirm: "pw"}

	require.NoError(t, (&SignupCmd{Email: "new@example.com"}).Run(e.ctx))

	calls := e.srv.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, "GET /health", calls[0], "the server is woken before signing up")
	assert.Equal(t, "POST /auth/signup", calls[len(calls)-1])
	assert.Contains(t, e.out.String(), "✓ Account created. Logged in as new@example.com")
	assert.True(t, e.ctx.Session.Authenticated())
}

func TestSignupCmdPasswordMismatch(t *testing.T) {
	e := setupTestContext(t, "")

	err := (&SignupCmd{Email: "new@example.com", Password: "a", Confirm: "b", NoWarmUp: true}).Run(e.ctx)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Passwords do not match", verr.Message)
	assert.Zero(t, e.srv.CountCalls("POST /auth/signup"))
}

func TestSignupCmdContinuesWhenWarmUpFails(t *testing.T) {
	e := setupTestContext(t, "")
	e.srv.FailHealth(10)

	require.NoError(t, (&SignupCmd{Email: "new@example.com", Password: "pw", Confirm: "pw"}).Run(e.ctx))
	assert.Equal(t, 1, e.srv.CountCalls("POST /auth/signup"))
}

func TestLogoutCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	cache := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, cache.Init(context.Background()))
	t.Cleanup(func() { cache.Close() })
	require.NoError(t, cache.SaveSnapshot(context.Background(), models.Snapshot{TodayDate: today}))
	e.ctx.Cache = cache

	require.NoError(t, (&LogoutCmd{}).Run(e.ctx))
	assert.False(t, e.ctx.Session.Authenticated())
	_, err := cache.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, storage.ErrNoSnapshot)

	// Logging out twice is fine.
	require.NoError(t, (&LogoutCmd{}).Run(e.ctx))
}

func TestAuthStatusCmd(t *testing.T) {
	t.Run("logged out", func(t *testing.T) {
		e := setupTestContext(t, "")
		require.NoError(t, (&AuthStatusCmd{}).Run(e.ctx))
		assert.Contains(t, e.out.String(), "Not logged in.")
	})

	t.Run("opaque token", func(t *testing.T) {
		e := setupTestContext(t, testToken)
		require.NoError(t, (&AuthStatusCmd{}).Run(e.ctx))
		assert.Contains(t, e.out.String(), "Logged in.")
		assert.Contains(t, e.out.String(), "unknown expiry")
	})
}

func TestHabitAddAndList(t *testing.T) {
	e := setupTestContext(t, testToken)

	require.NoError(t, (&HabitAddCmd{Name: "  Read  ", Description: "20 pages"}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "Added habit #1: Read")

	e.srv.Complete(1, "2024-03-14", today)
	e.out.Reset()
	require.NoError(t, (&HabitListCmd{}).Run(e.ctx))
	out := e.out.String()
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `1\s+Read\s+2\s+2`, out)
}

func TestHabitAddRejectsBlankName(t *testing.T) {
	e := setupTestContext(t, testToken)

	err := (&HabitAddCmd{Name: "   "}).Run(e.ctx)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, e.srv.CountCalls("POST /habits"))
}

func TestHabitListEmpty(t *testing.T) {
	e := setupTestContext(t, testToken)

	require.NoError(t, (&HabitListCmd{}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "No habits yet")
}

func TestHabitShowCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Meditate")
	e.srv.Complete(id, "2024-03-10", "2024-03-13", "2024-03-14", today)

	require.NoError(t, (&HabitShowCmd{ID: id, Recent: 2}).Run(e.ctx))
	out := e.out.String()
	assert.Contains(t, out, "#1 Meditate")
	assert.Contains(t, out, "Current streak: 3 days (starting)")
	assert.Contains(t, out, "Longest streak: 3 days")
	assert.Contains(t, out, "Total completions: 4")
	assert.Contains(t, out, "✓ 2024-03-15")
	assert.Contains(t, out, "✓ 2024-03-14")
	assert.NotContains(t, out, "✓ 2024-03-13")
}

func TestHabitShowUnknown(t *testing.T) {
	e := setupTestContext(t, testToken)

	err := (&HabitShowCmd{ID: 42}).Run(e.ctx)
	assert.EqualError(t, err, "habit 42 not found")
}

func TestHabitDeleteCmd(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		e := setupTestContext(t, testToken)
		id := e.srv.AddHabit("Read")

		require.NoError(t, (&HabitDeleteCmd{ID: id}).Run(e.ctx))
		assert.Contains(t, e.out.String(), "Cancelled.")
		require.Len(t, e.prompter.confirmed, 1)
		assert.Contains(t, e.prompter.confirmed[0], `"Read"`)
		assert.Zero(t, e.srv.CountCalls("DELETE"))
	})

	t.Run("confirmed", func(t *testing.T) {
		e := setupTestContext(t, testToken)
		id := e.srv.AddHabit("Read")
		e.prompter.confirm = true

		require.NoError(t, (&HabitDeleteCmd{ID: id}).Run(e.ctx))
		assert.Contains(t, e.out.String(), "Deleted habit: Read")
		assert.Equal(t, 1, e.srv.CountCalls("DELETE /habits/1"))
	})

	t.Run("yes flag skips the prompt", func(t *testing.T) {
		e := setupTestContext(t, testToken)
		id := e.srv.AddHabit("Read")

		require.NoError(t, (&HabitDeleteCmd{ID: id, Yes: true}).Run(e.ctx))
		assert.Empty(t, e.prompter.confirmed)
		assert.Empty(t, e.ctx.Tracker.Habits())
	})
}

func TestTodayCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	read := e.srv.AddHabit("Read")
	e.srv.AddHabit("Run")
	e.srv.Complete(read, today)

	require.NoError(t, (&TodayCmd{}).Run(e.ctx))
	out := e.out.String()
	assert.Contains(t, out, "Habits for "+today)
	assert.Regexp(t, `✓\s+1\s+Read`, out)
	assert.Regexp(t, `○\s+2\s+Run`, out)
	assert.Contains(t, out, "Recorded: 1/2")
}

func TestToggleCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")

	require.NoError(t, (&ToggleCmd{ID: id}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "✓ Marked Read for "+today)
	assert.True(t, e.srv.HasCompletion(id, today))

	e.out.Reset()
	require.NoError(t, (&ToggleCmd{ID: id}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "○ Unmarked Read for "+today)
	assert.False(t, e.srv.HasCompletion(id, today))
}

func TestToggleCmdUnauthorizedExpiresSession(t *testing.T) {
	e := setupTestContext(t, "stale")
	e.srv.AddHabit("Read")

	err := (&ToggleCmd{ID: 1}).Run(e.ctx)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, e.ctx.Session.Authenticated())
}

func TestMarkCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")
	e.srv.Complete(id, "2024-03-13")

	require.NoError(t, (&MarkCmd{ID: id, Date: "2024-03-14"}).Run(e.ctx))
	out := e.out.String()
	assert.Contains(t, out, "✓ Marked Read for 2024-03-14")
	assert.Contains(t, out, "Longest streak: 2 days")
	assert.True(t, e.srv.HasCompletion(id, "2024-03-14"))

	e.out.Reset()
	require.NoError(t, (&MarkCmd{ID: id, Date: "2024-03-14"}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "Read is already completed for 2024-03-14")
	assert.Equal(t, 1, e.srv.CountCalls("POST /habits/1/completions"))
}

func TestMarkCmdDefaultsToToday(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")

	require.NoError(t, (&MarkCmd{ID: id}).Run(e.ctx))
	assert.Contains(t, e.srv.Calls(), "POST /habits/1/completions?date="+today)
}

func TestMarkCmdRejectsBadDates(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")

	err := (&MarkCmd{ID: id, Date: "2024-03-16"}).Run(e.ctx)
	assert.EqualError(t, err, "cannot change completions for a future date (2024-03-16)")

	err = (&MarkCmd{ID: id, Date: "03/14/2024"}).Run(e.ctx)
	assert.EqualError(t, err, `invalid date "03/14/2024" (expected YYYY-MM-DD)`)

	assert.Zero(t, e.srv.CountCalls("POST"))
}

func TestUnmarkCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")
	e.srv.Complete(id, "2024-03-01")

	require.NoError(t, (&UnmarkCmd{ID: id, Date: "2024-03-01"}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "○ Unmarked Read for 2024-03-01")
	assert.False(t, e.srv.HasCompletion(id, "2024-03-01"))

	e.out.Reset()
	require.NoError(t, (&UnmarkCmd{ID: id, Date: "2024-03-01"}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "Read was not completed on 2024-03-01")
}

func TestMarkAndUnmarkFailWhenHistoryUnreadable(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")
	e.srv.Complete(id, "2024-03-10")

	e.srv.FailNext("GET /habits/1/completions", http.StatusInternalServerError, "Database unavailable")
	err := (&UnmarkCmd{ID: id, Date: "2024-03-10"}).Run(e.ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Database unavailable")
	assert.Empty(t, e.out.String())
	assert.True(t, e.srv.HasCompletion(id, "2024-03-10"))

	e.srv.FailNext("GET /habits/1/completions", http.StatusInternalServerError, "Database unavailable")
	require.Error(t, (&MarkCmd{ID: id, Date: "2024-03-10"}).Run(e.ctx))
	assert.Zero(t, e.srv.CountCalls("POST /habits/1/completions"))
	assert.Zero(t, e.srv.CountCalls("DELETE /habits/1/completions"))
}

func TestCalendarCmd(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")
	e.srv.Complete(id, "2024-03-01", "2024-03-14", "2024-02-29")

	require.NoError(t, (&CalendarCmd{ID: id}).Run(e.ctx))
	out := e.out.String()
	assert.Contains(t, out, "March 2024")
	assert.Contains(t, out, "Sun Mon Tue Wed Thu Fri Sat")
	assert.Contains(t, out, " 1✓")
	assert.Contains(t, out, "14✓")
	assert.Contains(t, out, "15•")
	assert.Contains(t, out, "Completed this month: 2")
}

func TestCalendarCmdMonthFlag(t *testing.T) {
	e := setupTestContext(t, testToken)
	id := e.srv.AddHabit("Read")
	e.srv.Complete(id, "2024-02-29")

	require.NoError(t, (&CalendarCmd{ID: id, Month: "2024-02"}).Run(e.ctx))
	out := e.out.String()
	assert.Contains(t, out, "February 2024")
	assert.Contains(t, out, "29✓")
	assert.Contains(t, out, "Completed this month: 1")

	err := (&CalendarCmd{ID: id, Month: "2024-13"}).Run(e.ctx)
	assert.Error(t, err)
}

func TestRenderMonthLayout(t *testing.T) {
	// March 2024 starts on a Friday.
	cursor, err := calendar.CursorForMonth("2024-03")
	require.NoError(t, err)
	out := renderMonth(cursor, cursor.Cells(clock.Fixed(today), nil))

	lines := bytes.Split([]byte(out), []byte("\n"))
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "                     1   2 ", string(lines[2]))
	assert.Equal(t, " 3   4   5   6   7   8   9 ", string(lines[3]))
}

func TestWarmupCmd(t *testing.T) {
	e := setupTestContext(t, "")
	e.srv.FailHealth(1)

	require.NoError(t, (&WarmupCmd{Attempts: 2}).Run(e.ctx))
	assert.Contains(t, e.out.String(), "✓ Server is awake")
	assert.Equal(t, 2, e.srv.CountCalls("GET /health"))
}

func TestWarmupCmdGivesUp(t *testing.T) {
	e := setupTestContext(t, "")
	e.srv.FailHealth(5)

	err := (&WarmupCmd{Attempts: 2}).Run(e.ctx)
	require.Error(t, err)
	assert.Equal(t, 2, e.srv.CountCalls("GET /health"))
}

func TestDoctorCmd(t *testing.T) {
	keyring.MockInit()

	t.Run("healthy", func(t *testing.T) {
		e := setupTestContext(t, testToken)
		require.NoError(t, (&DoctorCmd{}).Run(e.ctx))
		out := e.out.String()
		assert.Contains(t, out, "✓ Configuration: OK")
		assert.Contains(t, out, "✓ OS keyring: OK")
		assert.Contains(t, out, "✓ Session: OK")
		assert.Contains(t, out, "⊘ Snapshot cache: SKIPPED")
		assert.Contains(t, out, "✓ Backend reachable: OK")
		assert.Contains(t, out, "today is "+today)
		assert.Contains(t, out, "All diagnostics passed!")
	})

	t.Run("backend down", func(t *testing.T) {
		e := setupTestContext(t, "")
		e.srv.FailHealth(1)
		err := (&DoctorCmd{}).Run(e.ctx)
		assert.EqualError(t, err, "1 health check(s) failed")
		out := e.out.String()
		assert.Contains(t, out, "⚠ Session: WARNING")
		assert.Contains(t, out, "❌ Backend reachable: FAIL")
	})

	t.Run("cache schema", func(t *testing.T) {
		e := setupTestContext(t, testToken)
		cache := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
		require.NoError(t, cache.Init(context.Background()))
		t.Cleanup(func() { cache.Close() })
		e.ctx.Cache = cache

		require.NoError(t, (&DoctorCmd{}).Run(e.ctx))
		assert.Contains(t, e.out.String(), "✓ Snapshot cache: OK")
	})
}

func TestFindHabitPassesThroughServerErrors(t *testing.T) {
	e := setupTestContext(t, testToken)
	e.srv.FailNext("GET /habits/7", http.StatusInternalServerError, "boom")

	_, err := e.ctx.findHabit(7)
	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
