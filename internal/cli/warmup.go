package cli

import (
	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/logger"
)

type WarmupCmd struct {
	Attempts int `help:"Number of health probes before giving up." default:"2"`
}

func (c *WarmupCmd) Run(ctx *Context) error {
	policy := api.DefaultWarmUpPolicy()
	if c.Attempts > 0 {
		policy.Attempts = c.Attempts
	}

	ctx.println("Waking up the server...")
	if err := ctx.Client.WarmUp(ctx.context(), policy); err != nil {
		logger.Warn("Warm-up failed", "attempts", policy.Attempts, "error", err)
		return err
	}
	ctx.println("✓ Server is awake")
	return nil
}
