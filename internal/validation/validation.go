// Package validation checks user input before any request is sent.
package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/habitrack/internal/models"
)

// Error is a rejected input field with a user-facing message.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// HabitInput is the create-habit form.
type HabitInput struct {
	Name        string `validate:"required"`
	Description string
}

// SignupInput is the signup form; Confirm must repeat Password.
type SignupInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Confirm  string `validate:"eqfield=Password"`
}

var messages = map[string]string{
	"HabitInput.Name.required":      "Habit name is required",
	"Credentials.Email.required":    "Email is required",
	"Credentials.Email.email":       "Please enter a valid email address",
	"Credentials.Password.required": "Password is required",
	"SignupInput.Email.required":    "Email is required",
	"SignupInput.Email.email":       "Please enter a valid email address",
	"SignupInput.Password.required": "Password is required",
	"SignupInput.Confirm.eqfield":   "Passwords do not match",
}

// Validator wraps a shared go-playground validator.
type Validator struct {
	v *validator.Validate
}

// New creates a new validator
func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Habit trims the input and returns the create request. An empty description
// is omitted rather than sent as "".
func (val *Validator) Habit(name, description string) (models.NewHabit, error) {
	in := HabitInput{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
	if err := val.check(in); err != nil {
		return models.NewHabit{}, err
	}
	out := models.NewHabit{Name: in.Name}
	if in.Description != "" {
		out.Description = &in.Description
	}
	return out, nil
}

// Credentials validates a login request. The email is trimmed; the password is not.
func (val *Validator) Credentials(email, password string) (models.Credentials, error) {
	creds := models.Credentials{Email: strings.TrimSpace(email), Password: password}
	if err := val.check(creds); err != nil {
		return models.Credentials{}, err
	}
	return creds, nil
}

// Signup validates a signup request including the password confirmation.
func (val *Validator) Signup(email, password, confirm string) (models.Credentials, error) {
	in := SignupInput{Email: strings.TrimSpace(email), Password: password, Confirm: confirm}
	if err := val.check(in); err != nil {
		return models.Credentials{}, err
	}
	return models.Credentials{Email: in.Email, Password: in.Password}, nil
}

// HabitName is a huh-compatible field validator.
func (val *Validator) HabitName(name string) error {
	_, err := val.Habit(name, "")
	return err
}

func (val *Validator) check(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	msg, ok := messages[fe.StructNamespace()+"."+fe.Tag()]
	if !ok {
		msg = fe.Field() + " is invalid"
	}
	return &Error{Field: fe.Field(), Message: msg}
}
