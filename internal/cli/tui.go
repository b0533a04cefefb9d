package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/storage"
	"github.com/julianstephens/habitrack/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return err
	}

	// Render the last known state immediately; Init refreshes it.
	if err := ctx.Tracker.Restore(ctx.context()); err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
		logger.Warn("Failed to restore snapshot", "error", err)
	}

	p := tea.NewProgram(tui.NewModel(ctx.Tracker, ctx.Validator), tea.WithAltScreen(), tea.WithContext(ctx.context()))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.Expired() {
		return api.ErrUnauthorized
	}
	return nil
}
