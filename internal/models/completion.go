package models

// Completion records that a habit was done on a calendar date (YYYY-MM-DD,
// local time of the client that created it).
type Completion struct {
	HabitID          int64   `json:"habitId"`
	HabitName        string  `json:"habitName"`
	HabitDescription *string `json:"habitDescription,omitempty"`
	CompletionDate   string  `json:"completionDate"`
}

// CompletionSet holds the ids of habits completed on a single date.
type CompletionSet map[int64]struct{}

// NewCompletionSet projects completions onto their habit ids.
func NewCompletionSet(completions []Completion) CompletionSet {
	set := make(CompletionSet, len(completions))
	for _, c := range completions {
		set[c.HabitID] = struct{}{}
	}
	return set
}

func (s CompletionSet) Has(habitID int64) bool {
	_, ok := s[habitID]
	return ok
}

// Clone returns an independent copy so callers can't mutate shared state.
func (s CompletionSet) Clone() CompletionSet {
	out := make(CompletionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Dates extracts the completion dates, preserving order.
func Dates(completions []Completion) []string {
	dates := make([]string, 0, len(completions))
	for _, c := range completions {
		dates = append(dates, c.CompletionDate)
	}
	return dates
}

// Snapshot is the last confirmed server state, cached locally so the TUI can
// render before the first fetch returns.
type Snapshot struct {
	Habits    []Habit
	TodayDate string
	Today     []int64
	SavedAt   int64 // unix seconds
}
