package models

// Habit is a tracked practice as reported by the server. Streak counters are
// computed server-side and are absent on responses that don't carry them.
type Habit struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	CurrentStreak *int    `json:"currentStreak,omitempty"`
	LongestStreak *int    `json:"longestStreak,omitempty"`
}

// DescriptionText returns the description or "" when none was set.
func (h Habit) DescriptionText() string {
	if h.Description == nil {
		return ""
	}
	return *h.Description
}

// Streaks returns the current and longest streak, treating missing values as 0.
func (h Habit) Streaks() (current, longest int) {
	if h.CurrentStreak != nil {
		current = *h.CurrentStreak
	}
	if h.LongestStreak != nil {
		longest = *h.LongestStreak
	}
	return current, longest
}

// NewHabit is the request body for creating a habit.
type NewHabit struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}
