package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/cli"
	"github.com/julianstephens/habitrack/internal/config"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/errors"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/session"
	"github.com/julianstephens/habitrack/internal/storage"
	"github.com/julianstephens/habitrack/internal/tracker"
	"github.com/julianstephens/habitrack/internal/validation"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path (default: ~/.config/habitrack/config.yaml)." type:"path" env:"HABITRACK_CONFIG"`
	APIURL  string `name:"api-url" help:"Habit service base URL, e.g. https://example.com/api."`
	Debug   bool   `help:"Log debug output to stderr."`
	NoCache bool   `help:"Do not read or write the local snapshot cache."`

	Login    cli.LoginCmd    `cmd:"" help:"Log in and store the session token."`
	Signup   cli.SignupCmd   `cmd:"" help:"Create an account and log in."`
	Logout   cli.LogoutCmd   `cmd:"" help:"Remove the stored session token."`
	Auth     cli.AuthCmd     `cmd:"" help:"Inspect the stored session."`
	Habit    cli.HabitCmd    `cmd:"" help:"Manage habits."`
	Today    cli.TodayCmd    `cmd:"" help:"Show today's habits and completions."`
	Toggle   cli.ToggleCmd   `cmd:"" help:"Toggle a habit's completion for today."`
	Mark     cli.MarkCmd     `cmd:"" help:"Mark a habit completed on a day."`
	Unmark   cli.UnmarkCmd   `cmd:"" help:"Remove a habit's completion on a day."`
	Calendar cli.CalendarCmd `cmd:"" help:"Show a month of a habit's completions."`
	Warmup   cli.WarmupCmd   `cmd:"" help:"Wake up a sleeping backend."`
	Doctor   cli.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Tui      cli.TuiCmd      `cmd:"" help:"Launch the interactive TUI." default:"1"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Track daily habits and streaks against a remote habit service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	errors.Fatal(run(ctx))
}

func run(kctx *kong.Context) error {
	cfg, err := config.Load(config.Options{Path: CLI.Config})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Apply(config.Overrides{APIURL: CLI.APIURL, Debug: CLI.Debug, NoCache: CLI.NoCache}); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	isTUI := kctx.Selected() != nil && kctx.Selected().Name == "tui"
	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.ConfigDir, Quiet: isTUI}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keyringStore := session.NewKeyringStore()
	var store session.TokenStore = keyringStore
	if !keyringStore.IsAvailable() {
		logger.Warn("OS keyring unavailable, the session will not outlive this process")
		store = session.NewMemoryStore("")
	}
	sess := session.New(store)
	sess.OnUnauthorized(func() {
		logger.Warn("Server rejected the session token; it has been removed")
	})

	client, err := api.New(api.Options{
		BaseURL:   cfg.APIURL,
		HealthURL: cfg.HealthURL,
		Timeout:   cfg.Timeout,
	}, sess)
	if err != nil {
		return err
	}

	validator := validation.New()
	opts := tracker.Options{Validator: validator}

	var cache *storage.SQLiteStore
	if cfg.Cache {
		cache = storage.NewSQLiteStore(cfg.CachePath)
		if err := cache.Init(sigCtx); err != nil {
			// The cache only speeds up startup; run without it.
			logger.Warn("Snapshot cache unavailable", "path", cfg.CachePath, "error", err)
			cache = nil
		} else {
			defer cache.Close()
			opts.Snapshots = cache
		}
	}

	appCtx := &cli.Context{
		Ctx:       sigCtx,
		Config:    cfg,
		Session:   sess,
		Client:    client,
		Tracker:   tracker.New(client, opts),
		Validator: validator,
		Cache:     cache,
		Prompter:  cli.HuhPrompter{},
		Out:       os.Stdout,
	}

	return kctx.Run(appCtx)
}
