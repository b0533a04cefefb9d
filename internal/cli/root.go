package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/clock"
	"github.com/julianstephens/habitrack/internal/config"
	"github.com/julianstephens/habitrack/internal/models"
	"github.com/julianstephens/habitrack/internal/session"
	"github.com/julianstephens/habitrack/internal/storage"
	"github.com/julianstephens/habitrack/internal/tracker"
	"github.com/julianstephens/habitrack/internal/validation"
)

// Context is handed to every command's Run method.
type Context struct {
	Ctx       context.Context
	Config    *config.Config
	Session   *session.Session
	Client    *api.Client
	Tracker   *tracker.Coordinator
	Validator *validation.Validator
	// Cache is nil when the snapshot cache is disabled.
	Cache    *storage.SQLiteStore
	Prompter Prompter
	Out      io.Writer
}

func (c *Context) context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

func (c *Context) clock() clock.Clock {
	return c.Tracker.Clock()
}

// EnsureAuthenticated fails fast when no session token is stored, before any
// request is made.
func (c *Context) EnsureAuthenticated() error {
	return c.Session.Require()
}

// findHabit looks the habit up on the server so unknown ids get a clear
// message instead of an empty history.
func (c *Context) findHabit(id int64) (models.Habit, error) {
	h, err := c.Client.GetHabit(c.context(), id)
	if errors.Is(err, api.ErrNotFound) {
		return h, fmt.Errorf("habit %d not found", id)
	}
	return h, err
}
