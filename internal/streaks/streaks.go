// Package streaks keeps the server-computed streak counters for display.
//
// Counters are never derived locally: they come from the most recent
// ListHabits or GetHabit response that carried them.
package streaks

import (
	"context"
	"errors"
	"sync"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/models"
)

// Pair is one habit's current and longest streak.
type Pair struct {
	Current int
	Longest int
}

// PairOf extracts the counters of h. ok is false when the response carried neither.
func PairOf(h models.Habit) (p Pair, ok bool) {
	if h.CurrentStreak == nil && h.LongestStreak == nil {
		return Pair{}, false
	}
	p.Current, p.Longest = h.Streaks()
	return p, true
}

type entry struct {
	pair Pair
	seq  uint64
}

// Cache holds the last known pair per habit. Writes carry a sequence number
// taken from Begin; a write older than the stored one is dropped.
type Cache struct {
	mu      sync.Mutex
	next    uint64
	entries map[int64]entry
}

func NewCache() *Cache {
	return &Cache{entries: map[int64]entry{}}
}

// Begin reserves a sequence number for a fetch about to be issued.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return c.next
}

// Put stores p for habitID unless a newer fetch already landed.
func (c *Cache) Put(habitID int64, p Pair, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[habitID]; ok && seq < cur.seq {
		return false
	}
	c.entries[habitID] = entry{pair: p, seq: seq}
	return true
}

// PutHabits stores the counters of every habit in a list response.
func (c *Cache) PutHabits(habits []models.Habit, seq uint64) {
	for _, h := range habits {
		if p, ok := PairOf(h); ok {
			c.Put(h.ID, p, seq)
		}
	}
}

func (c *Cache) Get(habitID int64) (Pair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[habitID]
	return e.pair, ok
}

// Forget drops a deleted habit.
func (c *Cache) Forget(habitID int64) {
	c.mu.Lock()
	delete(c.entries, habitID)
	c.mu.Unlock()
}

// Seed records the counters of the habit a calendar was opened with, unless
// the cache already knows the habit. A seeded entry loses to any fetch.
func (c *Cache) Seed(h models.Habit) {
	p, ok := PairOf(h)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, known := c.entries[h.ID]; !known {
		c.entries[h.ID] = entry{pair: p}
	}
}

// HabitFetcher loads a single habit.
type HabitFetcher interface {
	GetHabit(ctx context.Context, id int64) (models.Habit, error)
}

// Refresher re-reads single habits into a Cache.
type Refresher struct {
	fetcher HabitFetcher
	cache   *Cache
}

func NewRefresher(fetcher HabitFetcher, cache *Cache) *Refresher {
	return &Refresher{fetcher: fetcher, cache: cache}
}

// Refresh re-fetches one habit's counters. Failures keep the last known
// values and are only logged; an expired session is still reported.
func (r *Refresher) Refresh(ctx context.Context, habitID int64) error {
	seq := r.cache.Begin()
	habit, err := r.fetcher.GetHabit(ctx, habitID)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return err
		}
		logger.Debug("Streak refresh failed, keeping last known values", "habit_id", habitID, "error", err)
		return nil
	}
	if p, ok := PairOf(habit); ok {
		r.cache.Put(habitID, p, seq)
	}
	return nil
}

// Cache returns the cache the refresher writes to.
func (r *Refresher) Cache() *Cache { return r.cache }

// View is a read-only handle on one habit's counters.
type View struct {
	habitID int64
	cache   *Cache
}

func NewView(habitID int64, cache *Cache) View {
	return View{habitID: habitID, cache: cache}
}

func (v View) HabitID() int64 { return v.habitID }

func (v View) Pair() Pair {
	p, _ := v.cache.Get(v.habitID)
	return p
}

func (v View) Current() int { return v.Pair().Current }
func (v View) Longest() int { return v.Pair().Longest }
