package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/julianstephens/habitrack/internal/models"
)

// ListHabits returns every habit of the current user with streak counters.
func (c *Client) ListHabits(ctx context.Context) ([]models.Habit, error) {
	var habits []models.Habit
	if err := c.do(ctx, request{method: http.MethodGet, path: "/habits"}, &habits); err != nil {
		return nil, err
	}
	return habits, nil
}

// GetHabit fetches one habit. A missing habit matches ErrNotFound.
func (c *Client) GetHabit(ctx context.Context, id int64) (models.Habit, error) {
	var habit models.Habit
	if err := c.do(ctx, request{method: http.MethodGet, path: habitPath(id)}, &habit); err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}

// CreateHabit creates a habit. Callers validate and trim the input.
func (c *Client) CreateHabit(ctx context.Context, in models.NewHabit) (models.Habit, error) {
	var habit models.Habit
	if err := c.do(ctx, request{method: http.MethodPost, path: "/habits", body: in}, &habit); err != nil {
		return models.Habit{}, err
	}
	return habit, nil
}

func (c *Client) DeleteHabit(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: habitPath(id)}, nil)
}

// MarkCompleted records a completion. An empty date lets the server pick
// its own "today"; habitrack always passes the local date.
func (c *Client) MarkCompleted(ctx context.Context, habitID int64, date string) error {
	req := request{method: http.MethodPost, path: habitPath(habitID) + "/completions"}
	if date != "" {
		req.query = url.Values{"date": {date}}
	}
	return c.do(ctx, req, nil)
}

// UnmarkCompleted removes the completion for date.
func (c *Client) UnmarkCompleted(ctx context.Context, habitID int64, date string) error {
	if date == "" {
		return fmt.Errorf("unmark habit %d: date is required", habitID)
	}
	path := habitPath(habitID) + "/completions/" + url.PathEscape(date)
	return c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
}

// ListCompletionsForDate returns all of the user's completions on date, or
// on the server's today when date is empty.
func (c *Client) ListCompletionsForDate(ctx context.Context, date string) ([]models.Completion, error) {
	req := request{method: http.MethodGet, path: "/habits/completions"}
	if date != "" {
		req.query = url.Values{"date": {date}}
	}
	var completions []models.Completion
	if err := c.do(ctx, req, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

// ListCompletionsForHabit returns the full completion history of one habit.
func (c *Client) ListCompletionsForHabit(ctx context.Context, habitID int64) ([]models.Completion, error) {
	var completions []models.Completion
	if err := c.do(ctx, request{method: http.MethodGet, path: habitPath(habitID) + "/completions"}, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

func habitPath(id int64) string {
	return fmt.Sprintf("/habits/%d", id)
}
