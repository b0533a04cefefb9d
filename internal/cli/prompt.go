package cli

import (
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitrack/internal/validation"
)

// Prompter asks the user for input the flags did not provide.
type Prompter interface {
	Confirm(title string) (bool, error)
	// Credentials asks for whatever of email and password is missing, plus a
	// password confirmation when confirm is set.
	Credentials(in validation.SignupInput, confirm bool) (validation.SignupInput, error)
}

// HuhPrompter prompts on the terminal with huh forms.
type HuhPrompter struct{}

func (HuhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula())
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}

func (HuhPrompter) Credentials(in validation.SignupInput, confirm bool) (validation.SignupInput, error) {
	var fields []huh.Field
	if in.Email == "" {
		fields = append(fields, huh.NewInput().Title("Email").Value(&in.Email))
	}
	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password))
	}
	if confirm && in.Confirm == "" {
		fields = append(fields, huh.NewInput().
			Title("Confirm password").
			EchoMode(huh.EchoModePassword).
			Value(&in.Confirm))
	}
	if len(fields) == 0 {
		return in, nil
	}

	err := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeDracula()).Run()
	return in, err
}
