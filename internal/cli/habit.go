package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/streaks"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with their streaks."`
	Show   HabitShowCmd   `cmd:"" help:"Show a habit and its recent completions."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and its history."`
}

type HabitAddCmd struct {
	Name        string `arg:"" help:"Habit name."`
	Description string `short:"d" help:"Optional description."`
}

func (c *HabitAddCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}

	habit, err := ctx.Tracker.CreateHabit(ctx.context(), c.Name, c.Description)
	if err != nil {
		return err
	}

	ctx.printf("Added habit #%d: %s\n", habit.ID, habit.Name)
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}
	if err := ctx.Tracker.LoadHabits(ctx.context()); err != nil {
		return err
	}

	habits := ctx.Tracker.Habits()
	if len(habits) == 0 {
		ctx.println("No habits yet. Add one with 'habitrack habit add <name>'.")
		return nil
	}

	width := nameWidth(habits)
	ctx.printf("%4s  %-*s  %7s  %7s\n", "ID", width, "NAME", "CURRENT", "LONGEST")
	for _, h := range habits {
		current, longest := h.Streaks()
		ctx.printf("%4d  %-*s  %7d  %7d\n", h.ID, width, truncate(h.Name, width), current, longest)
	}
	return nil
}

type HabitShowCmd struct {
	ID     int64 `arg:"" help:"Habit id."`
	Recent int   `short:"n" help:"Number of recent completions to show." default:"10"`
}

func (c *HabitShowCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}

	habit, err := ctx.findHabit(c.ID)
	if err != nil {
		return err
	}
	ctx.Tracker.SeedStreaks(habit)
	history, err := ctx.Tracker.LoadHistory(ctx.context(), c.ID)
	if err != nil {
		return err
	}

	ctx.printf("#%d %s\n", habit.ID, habit.Name)
	if desc := habit.DescriptionText(); desc != "" {
		ctx.printf("   %s\n", desc)
	}
	ctx.println()
	printStreaks(ctx, ctx.Tracker.Streaks(habit.ID))
	ctx.printf("Total completions: %d\n", len(history))

	dates := models.Dates(history)
	if len(dates) == 0 {
		return nil
	}
	sort.Strings(dates)
	n := min(c.Recent, len(dates))
	ctx.println()
	ctx.println("Recent:")
	for i := len(dates) - 1; i >= len(dates)-n; i-- {
		ctx.printf("  ✓ %s\n", dates[i])
	}
	return nil
}

type HabitDeleteCmd struct {
	ID  int64 `arg:"" help:"Habit id."`
	Yes bool  `short:"y" help:"Do not ask for confirmation."`
}

func (c *HabitDeleteCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}

	habit, err := ctx.findHabit(c.ID)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := ctx.Prompter.Confirm(fmt.Sprintf("Delete %q? Its completion history will be lost.", habit.Name))
		if err != nil {
			return err
		}
		if !ok {
			ctx.println("Cancelled.")
			return nil
		}
	}

	if err := ctx.Tracker.DeleteHabit(ctx.context(), c.ID); err != nil {
		return err
	}
	ctx.printf("Deleted habit: %s\n", habit.Name)
	return nil
}

func printStreaks(ctx *Context, v streaks.View) {
	p := v.Pair()
	ctx.printf("Current streak: %s (%s)\n", days(p.Current), streaks.Band(p.Current))
	ctx.printf("Longest streak: %s\n", days(p.Longest))
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func nameWidth(habits []models.Habit) int {
	w := len("NAME")
	for _, h := range habits {
		w = max(w, len([]rune(h.Name)))
	}
	return min(w, 40)
}

func marker(done bool) string {
	if done {
		return "✓"
	}
	return "○"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
