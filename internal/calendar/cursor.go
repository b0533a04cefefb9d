package calendar

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/models"
)

// Cell is one slot of the rendered month. Blank cells pad the first week.
type Cell struct {
	Day       int
	Date      string
	Blank     bool
	Completed bool
	Today     bool
	Future    bool
}

// Cursor is the calendar view state: the displayed month plus the selected day.
// Navigation is unbounded in both directions.
type Cursor struct {
	anchor time.Time
}

// NewCursor starts on the clock's current day.
func NewCursor(clk clock.Clock) Cursor {
	return Cursor{anchor: clk.Now()}
}

// CursorAt starts on the given date (YYYY-MM-DD).
func CursorAt(date string) (Cursor, error) {
	t, err := time.ParseInLocation(constants.DateFormat, date, time.Local)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return Cursor{anchor: t}, nil
}

// CursorForMonth parses a YYYY-MM month and selects its first day.
func CursorForMonth(month string) (Cursor, error) {
	t, err := time.ParseInLocation(constants.MonthFormat, month, time.Local)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid month %q (expected YYYY-MM): %w", month, err)
	}
	return Cursor{anchor: t}, nil
}

func (c Cursor) Year() int  { return c.anchor.Year() }
func (c Cursor) Month() int { return int(c.anchor.Month()) - 1 }
func (c Cursor) Day() int   { return c.anchor.Day() }

// Title renders e.g. "March 2024".
func (c Cursor) Title() string {
	return fmt.Sprintf("%s %d", MonthNames[c.Month()], c.Year())
}

// Selected returns the selected date as YYYY-MM-DD.
func (c Cursor) Selected() string {
	return FormatDate(c.Year(), c.Month(), c.Day())
}

func (c Cursor) PrevMonth() Cursor { return Cursor{anchor: AdjacentMonth(c.anchor, Prev)} }
func (c Cursor) NextMonth() Cursor { return Cursor{anchor: AdjacentMonth(c.anchor, Next)} }

// MoveDays shifts the selection by n days, crossing month boundaries.
func (c Cursor) MoveDays(n int) Cursor {
	return Cursor{anchor: c.anchor.AddDate(0, 0, n)}
}

// Grid returns the layout of the displayed month.
func (c Cursor) Grid() Grid {
	return MonthGrid(c.Year(), c.Month())
}

// Cells lays out the displayed month as weekday-aligned cells annotated with
// completion, today and future flags.
func (c Cursor) Cells(clk clock.Clock, completions []models.Completion) []Cell {
	grid := c.Grid()
	done := make(map[string]struct{}, len(completions))
	for _, comp := range completions {
		done[comp.CompletionDate] = struct{}{}
	}

	cells := make([]Cell, 0, grid.StartingWeekdayOffset+grid.DaysInMonth)
	for i := 0; i < grid.StartingWeekdayOffset; i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for day := 1; day <= grid.DaysInMonth; day++ {
		date := FormatDate(grid.Year, grid.Month, day)
		_, completed := done[date]
		cells = append(cells, Cell{
			Day:       day,
			Date:      date,
			Completed: completed,
			Today:     IsToday(clk, date),
			Future:    IsFutureDate(clk, date),
		})
	}
	return cells
}
