package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/habitrack/internal/calendar"
	"github.com/julianstephens/habitrack/internal/models"
)

type CalendarCmd struct {
	ID    int64  `arg:"" help:"Habit id."`
	Month string `short:"m" help:"Month to show as YYYY-MM (default: current month)."`
}

func (c *CalendarCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}

	cursor := calendar.NewCursor(ctx.clock())
	if c.Month != "" {
		var err error
		if cursor, err = calendar.CursorForMonth(c.Month); err != nil {
			return err
		}
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

	ctx.printf("%s\n\n", habit.Name)
	ctx.printf("%s", renderMonth(cursor, cursor.Cells(ctx.clock(), history)))
	ctx.println()
	printStreaks(ctx, ctx.Tracker.Streaks(c.ID))
	ctx.printf("Completed this month: %d\n", completedIn(cursor, history))
	return nil
}

// renderMonth draws a month as a text grid. Each cell is the day number
// followed by ✓ when completed or • when it is today.
func renderMonth(cursor calendar.Cursor, cells []calendar.Cell) string {
	var b strings.Builder
	title := cursor.Title()
	width := len(calendar.DayNames)*4 - 1
	pad := max(0, (width-len(title))/2)
	b.WriteString(strings.Repeat(" ", pad) + title + "\n")
	b.WriteString(strings.Join(calendar.DayNames[:], " ") + "\n")

	for i, cell := range cells {
		switch {
		case cell.Blank:
			b.WriteString("   ")
		default:
			mark := " "
			if cell.Completed {
				mark = "✓"
			} else if cell.Today {
				mark = "•"
			}
			fmt.Fprintf(&b, "%2d%s", cell.Day, mark)
		}
		if i%7 == 6 || i == len(cells)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n✓ Completed  • Today\n")
	return b.String()
}

func completedIn(cursor calendar.Cursor, history []models.Completion) int {
	prefix := fmt.Sprintf("%04d-%02d-", cursor.Year(), cursor.Month()+1)
	n := 0
	for _, comp := range history {
		if strings.HasPrefix(comp.CompletionDate, prefix) {
			n++
		}
	}
	return n
}
