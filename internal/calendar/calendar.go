// Package calendar holds the pure month-grid logic behind the calendar views.
//
// Months are zero-based (0 = January) throughout this package so grid
// coordinates map directly onto FormatDate.
package calendar

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/models"
)

// MonthNames are the display names indexed by zero-based month.
var MonthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// DayNames are the column headers, starting on Sunday.
var DayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Grid describes the layout of one month.
type Grid struct {
	Year  int
	Month int // zero-based
	// DaysInMonth is the number of days in the month (28-31).
	DaysInMonth int
	// StartingWeekdayOffset is the weekday of the 1st, 0 = Sunday.
	StartingWeekdayOffset int
}

// MonthGrid computes the grid for a year and zero-based month.
func MonthGrid(year, month int) Grid {
	first := time.Date(year, time.Month(month+1), 1, 0, 0, 0, 0, time.Local)
	// Day 0 of the following month is the last day of this one.
	last := time.Date(year, time.Month(month+2), 0, 0, 0, 0, 0, time.Local)
	return Grid{
		Year:                  year,
		Month:                 month,
		DaysInMonth:           last.Day(),
		StartingWeekdayOffset: int(first.Weekday()),
	}
}

// FormatDate renders a zero-based month as a YYYY-MM-DD date string.
func FormatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month+1, day)
}

// ParseDate is the inverse of FormatDate; month is returned zero-based.
func ParseDate(date string) (year, month, day int, err error) {
	t, err := time.Parse(constants.DateFormat, date)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", date, err)
	}
	return t.Year(), int(t.Month()) - 1, t.Day(), nil
}

// IsCompleted reports whether any completion carries exactly this date.
func IsCompleted(date string, completions []models.Completion) bool {
	for _, c := range completions {
		if c.CompletionDate == date {
			return true
		}
	}
	return false
}

// IsToday reports whether date is the clock's local calendar date.
func IsToday(clk clock.Clock, date string) bool {
	return date == clock.Today(clk)
}

// IsFutureDate reports whether date is strictly after the local today.
// Zero-padded ISO dates order lexicographically, so no parsing is needed.
func IsFutureDate(clk clock.Clock, date string) bool {
	return date > clock.Today(clk)
}

// Direction selects the neighbouring month.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// AdjacentMonth moves t one month in dir, keeping the day-of-month when it
// exists and clamping to the target month's last day when it doesn't
// (Jan 31 -> Feb 28/29).
func AdjacentMonth(t time.Time, dir Direction) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(dir), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(target.Year(), target.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
