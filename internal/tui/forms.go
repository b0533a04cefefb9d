package tui

import "github.com/charmbracelet/huh"

// NewHabitForm creates the add-habit form. validateName runs on the name
// field before the form can be submitted.
func NewHabitForm(fm *HabitFormModel, validateName func(string) error) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(validateName),
			huh.NewInput().
				Title("Description").
				Description("Optional").
				Value(&fm.Description),
		),
	).WithTheme(huh.ThemeDracula())
}
