package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitrack/internal/api"
	"github.com/julianstephens/habitrack/internal/constants"
	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/session"
	"github.com/julianstephens/habitrack/internal/validation"
)

type LoginCmd struct {
	Email    string `short:"e" help:"Account email."`
	Password string `env:"HABITRACK_PASSWORD" help:"Account password (prompted when omitted)."`
}

func (c *LoginCmd) Run(ctx *Context) error {
	in, err := ctx.Prompter.Credentials(validation.SignupInput{Email: c.Email, Password: c.Password}, false)
	if err != nil {
		return err
	}
	creds, err := ctx.Validator.Credentials(in.Email, in.Password)
	if err != nil {
		return err
	}

	token, err := ctx.Client.Login(ctx.context(), creds)
	if err != nil {
		return err
	}
	if err := ctx.Session.Save(token); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	logger.Info("Logged in", "email", creds.Email)
	ctx.printf("✓ Logged in as %s\n", creds.Email)
	return nil
}

type SignupCmd struct {
	Email    string `short:"e" help:"Account email."`
	Password string `env:"HABITRACK_PASSWORD" help:"Account password (prompted when omitted)."`
	Confirm  string `help:"Repeat the password (prompted when omitted)."`
	NoWarmUp bool   `help:"Skip waking the server before signing up."`
}

func (c *SignupCmd) Run(ctx *Context) error {
	// The backend may be asleep. Wake it before showing the form.
	if !c.NoWarmUp {
		ctx.println("Waking up the server...")
		if err := ctx.Client.WarmUp(ctx.context(), api.DefaultWarmUpPolicy()); err != nil {
			logger.Warn("Warm-up failed, continuing with signup", "error", err)
		}
	}

	in, err := ctx.Prompter.Credentials(validation.SignupInput{
		Email:    c.Email,
		Password: c.Password,
		Confirm:  c.Confirm,
	}, true)
	if err != nil {
		return err
	}
	creds, err := ctx.Validator.Signup(in.Email, in.Password, in.Confirm)
	if err != nil {
		return err
	}

	token, err := ctx.Client.Signup(ctx.context(), creds)
	if err != nil {
		return err
	}
	if err := ctx.Session.Save(token); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	logger.Info("Signed up", "email", creds.Email)
	ctx.printf("✓ Account created. Logged in as %s\n", creds.Email)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	if err := ctx.Session.Clear(); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	if ctx.Cache != nil {
		if err := ctx.Cache.Clear(ctx.context()); err != nil {
			logger.Warn("Failed to clear snapshot cache", "error", err)
		}
	}
	ctx.println("Logged out.")
	return nil
}

type AuthCmd struct {
	Status AuthStatusCmd `cmd:"" help:"Show whether a session is stored and when it expires."`
}

type AuthStatusCmd struct{}

func (c *AuthStatusCmd) Run(ctx *Context) error {
	if err := ctx.EnsureAuthenticated(); err != nil {
		if errors.Is(err, session.ErrNoToken) {
			ctx.printf("Not logged in. Run '%s login'.\n", constants.AppName)
			return nil
		}
		return err
	}

	ctx.println("Logged in.")
	exp, ok := session.Expiry(ctx.Session.Token())
	switch {
	case !ok:
		ctx.println("Session expiry: unknown expiry")
	case !exp.After(ctx.clock().Now()):
		ctx.printf("Session expired at %s. Run '%s login' again.\n", exp.Local().Format(time.RFC1123), constants.AppName)
	default:
		ctx.printf("Session expires at %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}
