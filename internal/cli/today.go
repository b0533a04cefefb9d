package cli

import (
	"fmt"

	"github.com/julianstephens/habitrack/internal/calendar"
)

type TodayCmd struct{}

func (c *TodayCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}
	if err := ctx.Tracker.LoadAll(ctx.context()); err != nil {
		return err
	}

	habits := ctx.Tracker.Habits()
	if len(habits) == 0 {
		ctx.println("No habits yet. Add one with 'habitrack habit add <name>'.")
		return nil
	}

	done := ctx.Tracker.TodaySet()
	width := nameWidth(habits)
	ctx.printf("Habits for %s:\n\n", ctx.Tracker.Today())
	recorded := 0
	for _, h := range habits {
		completed := done.Has(h.ID)
		if completed {
			recorded++
		}
		current, _ := h.Streaks()
		ctx.printf("%s %4d  %-*s  %s\n", marker(completed), h.ID, width, truncate(h.Name, width), days(current))
	}
	ctx.printf("\nRecorded: %d/%d\n", recorded, len(habits))
	return nil
}

type ToggleCmd struct {
	ID int64 `arg:"" help:"Habit id."`
}

func (c *ToggleCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}
	habit, err := ctx.findHabit(c.ID)
	if err != nil {
		return err
	}

	completed, err := ctx.Tracker.ToggleToday(ctx.context(), c.ID)
	if err != nil {
		return err
	}
	reportToggle(ctx, habit.Name, ctx.Tracker.Today(), completed)
	return nil
}

type MarkCmd struct {
	ID   int64  `arg:"" help:"Habit id."`
	Date string `help:"Date in YYYY-MM-DD format (default: today)."`
}

func (c *MarkCmd) Run(ctx *Context) error {
	return setCompleted(ctx, c.ID, c.Date, true)
}

type UnmarkCmd struct {
	ID   int64  `arg:"" help:"Habit id."`
	Date string `help:"Date in YYYY-MM-DD format." required:""`
}

func (c *UnmarkCmd) Run(ctx *Context) error {
	return setCompleted(ctx, c.ID, c.Date, false)
}

// setCompleted brings a habit's completion on date to want, toggling only
// when it differs from the server's history.
func setCompleted(ctx *Context, id int64, date string, want bool) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}
	if date == "" {
		date = ctx.Tracker.Today()
	}
	if _, _, _, err := calendar.ParseDate(date); err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	if calendar.IsFutureDate(ctx.clock(), date) {
		return fmt.Errorf("cannot change completions for a future date (%s)", date)
	}

	habit, err := ctx.findHabit(id)
	if err != nil {
		return err
	}
	if _, err := ctx.Tracker.FetchHistory(ctx.context(), id); err != nil {
		return err
	}
	if ctx.Tracker.IsCompletedOn(id, date) == want {
		if want {
			ctx.printf("%s is already completed for %s\n", habit.Name, date)
		} else {
			ctx.printf("%s was not completed on %s\n", habit.Name, date)
		}
		return nil
	}

	completed, err := ctx.Tracker.ToggleDate(ctx.context(), id, date)
	if err != nil {
		return err
	}
	reportToggle(ctx, habit.Name, date, completed)
	printStreaks(ctx, ctx.Tracker.Streaks(id))
	return nil
}

func reportToggle(ctx *Context, name, date string, completed bool) {
	if completed {
		ctx.printf("✓ Marked %s for %s\n", name, date)
	} else {
		ctx.printf("○ Unmarked %s for %s\n", name, date)
	}
}
