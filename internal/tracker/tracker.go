// Package tracker coordinates completion state between the views and the
// habit service. Local state is only ever replaced by fresh server reads;
// mutations are confirmed by the server before anything is re-fetched.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/streaks"
	"github.com/julianstephens/habitrack/internal/validation"
)

// HabitService is the subset of the API client the coordinator needs.
type HabitService interface {
	ListHabits(ctx context.Context) ([]models.Habit, error)
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
	CreateHabit(ctx context.Context, in models.NewHabit) (models.Habit, error)
	DeleteHabit(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, habitID int64, date string) error
	UnmarkCompleted(ctx context.Context, habitID int64, date string) error
	ListCompletionsForDate(ctx context.Context, date string) ([]models.Completion, error)
	ListCompletionsForHabit(ctx context.Context, habitID int64) ([]models.Completion, error)
}

// SnapshotStore persists confirmed state between runs.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap models.Snapshot) error
	LoadSnapshot(ctx context.Context) (models.Snapshot, error)
}

// Options configures a Coordinator. Zero values get sensible defaults.
type Options struct {
	Clock     clock.Clock
	Snapshots SnapshotStore
	Streaks   *streaks.Cache
	Validator *validation.Validator
}

const (
	keyHabits = "habits"
	keyToday  = "today"
)

func historyKey(habitID int64) string { return "history:" + strconv.FormatInt(habitID, 10) }

// Coordinator owns the habit list, today's completion set and per-habit
// histories. It is safe for concurrent use.
type Coordinator struct {
	svc       HabitService
	clk       clock.Clock
	snapshots SnapshotStore
	streaks   *streaks.Refresher
	validator *validation.Validator

	mu        sync.Mutex
	habits    []models.Habit
	habitsErr error
	today     models.CompletionSet
	todayDate string
	history   map[int64][]models.Completion
	issued    map[string]uint64
	applied   map[string]uint64
}

func New(svc HabitService, opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Streaks == nil {
		opts.Streaks = streaks.NewCache()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	return &Coordinator{
		svc:       svc,
		clk:       opts.Clock,
		snapshots: opts.Snapshots,
		streaks:   streaks.NewRefresher(svc, opts.Streaks),
		validator: opts.Validator,
		today:     models.CompletionSet{},
		history:   map[int64][]models.Completion{},
		issued:    map[string]uint64{},
		applied:   map[string]uint64{},
	}
}

// begin reserves the next sequence number for a read of key.
func (c *Coordinator) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[key]++
	return c.issued[key]
}

// accept reports whether a read with seq may overwrite key. Must hold c.mu.
func (c *Coordinator) accept(key string, seq uint64) bool {
	if seq < c.applied[key] {
		logger.Debug("Discarding stale response", "key", key, "seq", seq, "applied", c.applied[key])
		return false
	}
	c.applied[key] = seq
	return true
}

// Today returns the local date the coordinator treats as today.
func (c *Coordinator) Today() string { return clock.Today(c.clk) }

// Clock returns the clock used for local dates.
func (c *Coordinator) Clock() clock.Clock { return c.clk }

// LoadAll fetches the habit list and today's completions concurrently.
// Only the habit list can fail the call.
func (c *Coordinator) LoadAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.LoadHabits(ctx) })
	g.Go(func() error {
		_, err := c.LoadToday(ctx)
		return err
	})
	return g.Wait()
}

// LoadHabits replaces the habit list. Its error is also kept for HabitsErr.
func (c *Coordinator) LoadHabits(ctx context.Context) error {
	seq := c.begin(keyHabits)
	streakSeq := c.streaks.Cache().Begin()
	habits, err := c.svc.ListHabits(ctx)

	c.mu.Lock()
	if !c.accept(keyHabits, seq) {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.habitsErr = err
		c.mu.Unlock()
		return fmt.Errorf("load habits: %w", err)
	}
	c.habits = habits
	c.habitsErr = nil
	c.mu.Unlock()

	c.streaks.Cache().PutHabits(habits, streakSeq)
	c.persist(ctx)
	return nil
}

// LoadToday replaces today's completion set. Failures other than an expired
// session keep the previous set and are not returned.
func (c *Coordinator) LoadToday(ctx context.Context) (models.CompletionSet, error) {
	date := c.Today()
	seq := c.begin(keyToday)
	completions, err := c.svc.ListCompletionsForDate(ctx, date)

	c.mu.Lock()
	if err != nil {
		set := c.today.Clone()
		c.mu.Unlock()
		if errors.Is(err, api.ErrUnauthorized) {
			return set, err
		}
		logger.Warn("Failed to load today's completions, keeping previous set", "date", date, "error", err)
		return set, nil
	}
	if c.accept(keyToday, seq) {
		c.today = models.NewCompletionSet(completions)
		c.todayDate = date
	}
	set := c.today.Clone()
	c.mu.Unlock()

	c.persist(ctx)
	return set, nil
}

// LoadHistory replaces one habit's completion history with the same failure
// policy as LoadToday.
func (c *Coordinator) LoadHistory(ctx context.Context, habitID int64) ([]models.Completion, error) {
	completions, err := c.FetchHistory(ctx, habitID)
	if err == nil || errors.Is(err, api.ErrUnauthorized) {
		return completions, err
	}
	logger.Warn("Failed to load completion history, keeping previous", "habit_id", habitID, "error", err)
	return completions, nil
}

// FetchHistory replaces one habit's completion history and reports every
// failure. Callers that decide what to send the server from the history use
// it instead of LoadHistory. On failure the previous history is returned.
func (c *Coordinator) FetchHistory(ctx context.Context, habitID int64) ([]models.Completion, error) {
	key := historyKey(habitID)
	seq := c.begin(key)
	completions, err := c.svc.ListCompletionsForHabit(ctx, habitID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return append([]models.Completion(nil), c.history[habitID]...), fmt.Errorf("load history of habit %d: %w", habitID, err)
	}
	if c.accept(key, seq) {
		c.history[habitID] = completions
	}
	return append([]models.Completion(nil), c.history[habitID]...), nil
}

// ToggleToday flips today's completion of a habit and returns whether it is
// now completed. State is refreshed from the server only after the mutation
// succeeds; on failure nothing changes.
func (c *Coordinator) ToggleToday(ctx context.Context, habitID int64) (bool, error) {
	today := c.Today()

	c.mu.Lock()
	stale := c.todayDate != today
	c.mu.Unlock()
	if stale {
		// The set belongs to another day (first use, or midnight passed).
		if _, err := c.LoadToday(ctx); err != nil {
			return false, err
		}
	}

	completed := c.IsCompletedToday(habitID)
	if err := c.mutate(ctx, habitID, today, completed); err != nil {
		return completed, err
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := c.LoadToday(ctx)
		return err
	})
	g.Go(func() error { return c.refreshHabits(ctx) })
	if err := g.Wait(); err != nil {
		return !completed, err
	}
	return !completed, nil
}

// ToggleDate flips a habit's completion on an arbitrary date. Dates after
// today are expected to be disabled by the caller and are not checked here.
// After the server confirms, the habit's history and its streak counters are
// re-fetched concurrently.
func (c *Coordinator) ToggleDate(ctx context.Context, habitID int64, date string) (bool, error) {
	c.mu.Lock()
	_, loaded := c.history[habitID]
	c.mu.Unlock()
	if !loaded {
		if _, err := c.FetchHistory(ctx, habitID); err != nil {
			return false, err
		}
	}

	completed := c.IsCompletedOn(habitID, date)
	if err := c.mutate(ctx, habitID, date, completed); err != nil {
		return completed, err
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := c.LoadHistory(ctx, habitID)
		return err
	})
	g.Go(func() error { return c.streaks.Refresh(ctx, habitID) })
	if err := g.Wait(); err != nil {
		return !completed, err
	}

	if date == c.Today() {
		// Keep the list view consistent with a toggle made from the calendar.
		if _, err := c.LoadToday(ctx); err != nil {
			return !completed, err
		}
	}
	return !completed, nil
}

func (c *Coordinator) mutate(ctx context.Context, habitID int64, date string, completed bool) error {
	var err error
	if completed {
		err = c.svc.UnmarkCompleted(ctx, habitID, date)
	} else {
		err = c.svc.MarkCompleted(ctx, habitID, date)
	}
	if err != nil {
		action := "mark"
		if completed {
			action = "unmark"
		}
		logger.Warn("Completion toggle failed", "habit_id", habitID, "date", date, "action", action, "error", err)
		return fmt.Errorf("%s habit %d for %s: %w", action, habitID, date, err)
	}
	logger.Debug("Completion toggled", "habit_id", habitID, "date", date, "completed", !completed)
	return nil
}

// refreshHabits re-reads the list after a mutation. A failure is recorded for
// the list view but only an expired session is returned.
func (c *Coordinator) refreshHabits(ctx context.Context) error {
	err := c.LoadHabits(ctx)
	if err != nil && errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	return nil
}

// CreateHabit validates the input, creates the habit and refreshes the list.
func (c *Coordinator) CreateHabit(ctx context.Context, name, description string) (models.Habit, error) {
	in, err := c.validator.Habit(name, description)
	if err != nil {
		return models.Habit{}, err
	}
	habit, err := c.svc.CreateHabit(ctx, in)
	if err != nil {
		return models.Habit{}, fmt.Errorf("create habit: %w", err)
	}
	logger.Info("Habit created", "habit_id", habit.ID)
	if err := c.refreshHabits(ctx); err != nil {
		return habit, err
	}
	return habit, nil
}

// DeleteHabit deletes a habit and reloads everything.
func (c *Coordinator) DeleteHabit(ctx context.Context, habitID int64) error {
	if err := c.svc.DeleteHabit(ctx, habitID); err != nil {
		return fmt.Errorf("delete habit %d: %w", habitID, err)
	}
	logger.Info("Habit deleted", "habit_id", habitID)

	c.mu.Lock()
	delete(c.history, habitID)
	c.mu.Unlock()
	c.streaks.Cache().Forget(habitID)

	return c.LoadAll(ctx)
}

// RefreshStreaks re-reads one habit's counters; failures are silent.
func (c *Coordinator) RefreshStreaks(ctx context.Context, habitID int64) error {
	return c.streaks.Refresh(ctx, habitID)
}

// Streaks returns a view of a habit's last known counters.
func (c *Coordinator) Streaks(habitID int64) streaks.View {
	return streaks.NewView(habitID, c.streaks.Cache())
}

// SeedStreaks records the counters of the habit a calendar was opened with.
func (c *Coordinator) SeedStreaks(h models.Habit) {
	c.streaks.Cache().Seed(h)
}

// Habits returns a copy of the current habit list.
func (c *Coordinator) Habits() []models.Habit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Habit(nil), c.habits...)
}

// HabitsErr is the error of the last habit list load, if it failed.
func (c *Coordinator) HabitsErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.habitsErr
}

// Habit looks a habit up in the current list.
func (c *Coordinator) Habit(habitID int64) (models.Habit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.habits {
		if h.ID == habitID {
			return h, true
		}
	}
	return models.Habit{}, false
}

// TodaySet returns a copy of today's completion set.
func (c *Coordinator) TodaySet() models.CompletionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today.Clone()
}

func (c *Coordinator) IsCompletedToday(habitID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today.Has(habitID)
}

// IsCompletedOn checks the loaded history of a habit.
func (c *Coordinator) IsCompletedOn(habitID int64, date string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, comp := range c.history[habitID] {
		if comp.CompletionDate == date {
			return true
		}
	}
	return false
}

// History returns a copy of a habit's loaded completion history.
func (c *Coordinator) History(habitID int64) []models.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Completion(nil), c.history[habitID]...)
}

// Restore seeds state from the snapshot store. A snapshot from another day
// restores habits only.
func (c *Coordinator) Restore(ctx context.Context) error {
	if c.snapshots == nil {
		return nil
	}
	snap, err := c.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.applied[keyHabits] == 0 {
		c.habits = snap.Habits
	}
	if c.applied[keyToday] == 0 && snap.TodayDate == c.Today() {
		c.today = models.CompletionSet{}
		for _, id := range snap.Today {
			c.today[id] = struct{}{}
		}
		c.todayDate = snap.TodayDate
	}
	c.mu.Unlock()

	c.streaks.Cache().PutHabits(snap.Habits, c.streaks.Cache().Begin())
	logger.Debug("Restored snapshot", "habits", len(snap.Habits), "saved_at", time.Unix(snap.SavedAt, 0))
	return nil
}

func (c *Coordinator) persist(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	c.mu.Lock()
	snap := models.Snapshot{
		Habits:    append([]models.Habit(nil), c.habits...),
		TodayDate: c.todayDate,
		SavedAt:   c.clk.Now().Unix(),
	}
	for id := range c.today {
		snap.Today = append(snap.Today, id)
	}
	c.mu.Unlock()

	if err := c.snapshots.SaveSnapshot(ctx, snap); err != nil {
		logger.Warn("Failed to save snapshot", "error", err)
	}
}
