package cli

import (
	"errors"
	"fmt"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/session"
)

type DoctorCmd struct{}

type checkStatus int

const (
	checkOK checkStatus = iota
	checkWarn
	checkFail
	checkSkip
)

type check struct {
	name string
	run  func(ctx *Context) (checkStatus, string)
}

var doctorChecks = []check{
	{"Configuration", checkConfig},
	{"OS keyring", checkKeyring},
	{"Session", checkSession},
	{"Snapshot cache", checkCache},
	{"Backend reachable", checkBackend},
	{"Clock/timezone", checkClock},
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	failed := 0
	for _, c := range doctorChecks {
		status, detail := c.run(ctx)
		switch status {
		case checkOK:
			ctx.printf("✓ %s: OK\n", c.name)
		case checkWarn:
			ctx.printf("⚠ %s: WARNING\n", c.name)
		case checkFail:
			ctx.printf("❌ %s: FAIL\n", c.name)
			failed++
		case checkSkip:
			ctx.printf("⊘ %s: SKIPPED\n", c.name)
		}
		if detail != "" {
			ctx.printf("   %s\n", detail)
		}
	}

	ctx.println()
	if failed > 0 {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("%d health check(s) failed", failed)
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkConfig(ctx *Context) (checkStatus, string) {
	if err := ctx.Config.Validate(); err != nil {
		return checkFail, err.Error()
	}
	if ctx.Config.Source == "" {
		return checkOK, "using defaults (no config file found)"
	}
	return checkOK, "loaded from " + ctx.Config.Source
}

func checkKeyring(_ *Context) (checkStatus, string) {
	if !session.NewKeyringStore().IsAvailable() {
		return checkFail, session.ErrKeyringUnavailable.Error()
	}
	return checkOK, ""
}

func checkSession(ctx *Context) (checkStatus, string) {
	if err := ctx.EnsureAuthenticated(); err != nil {
		return checkWarn, fmt.Sprintf("not logged in; run '%s login'", constants.AppName)
	}
	exp, ok := session.Expiry(ctx.Session.Token())
	if ok && !exp.After(ctx.clock().Now()) {
		return checkWarn, fmt.Sprintf("token expired; run '%s login'", constants.AppName)
	}
	return checkOK, ""
}

func checkCache(ctx *Context) (checkStatus, string) {
	if ctx.Cache == nil {
		return checkSkip, "cache disabled"
	}
	current, latest, err := ctx.Cache.SchemaStatus(ctx.context())
	if err != nil {
		return checkFail, err.Error()
	}
	if current != latest {
		return checkFail, fmt.Sprintf("schema version %d, expected %d", current, latest)
	}
	return checkOK, ctx.Cache.Path()
}

func checkBackend(ctx *Context) (checkStatus, string) {
	policy := api.DefaultWarmUpPolicy()
	policy.Attempts = 1
	if err := ctx.Client.WarmUp(ctx.context(), policy); err != nil {
		var te *api.TransportError
		if errors.As(err, &te) {
			return checkFail, fmt.Sprintf("%s: %s", te.Kind, ctx.Config.HealthURL)
		}
		return checkFail, err.Error()
	}
	return checkOK, ctx.Config.APIURL
}

func checkClock(ctx *Context) (checkStatus, string) {
	now := ctx.clock().Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return checkFail, "system time appears incorrect: " + now.Format("2006-01-02 15:04:05 MST")
	}
	zone, _ := now.Zone()
	return checkOK, fmt.Sprintf("today is %s (%s)", ctx.Tracker.Today(), zone)
}
