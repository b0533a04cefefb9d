// Package clock abstracts the wall clock so "today" can be pinned in tests.
//
// Completion dates are always derived from the local wall clock of the
// machine running habitrack, never from UTC.
package clock

import (
	"sync"
	"time"

	"github.com/julianstephens/habitrack/internal/constants"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Real returns a Clock backed by time.Now in the local timezone.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().In(time.Local) }

// Fake is a settable clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Fixed returns a Fake pinned to local midday of the given date (YYYY-MM-DD).
// It panics on a malformed date; it is meant for test setup.
func Fixed(date string) *Fake {
	t, err := time.ParseInLocation(constants.DateFormat, date, time.Local)
	if err != nil {
		panic("clock: invalid fixed date " + date)
	}
	return NewFake(t.Add(12 * time.Hour))
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Today returns the local calendar date of clk as YYYY-MM-DD.
func Today(clk Clock) string {
	return clk.Now().Format(constants.DateFormat)
}
