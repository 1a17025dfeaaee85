package ui

import (
	"errors"
	"strings"

	"github.com/redmonkez12/ai-data-assistant/internal/validation"
)

// UserInput holds the fields of a new account
type UserInput struct {
	Username string
	Email    string
	Password string
	// Verified skips email verification, for admin accounts
	Verified bool
}

// Complete reports whether every required field is set
func (in *UserInput) Complete() bool {
	return in.Username != "" && in.Email != "" && in.Password != ""
}

// Normalize trims whitespace around the username and email
func (in *UserInput) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
}

// ValidateUserInput applies the registration rules of the HTTP API,
// including the password policy.
func ValidateUserInput(in *UserInput) error {
	if err := validateUsername(in.Username); err != nil {
		return err
	}
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	return validatePassword(in.Password)
}

func validateUsername(s string) error {
	if !validation.Username(strings.TrimSpace(s)) {
		return errors.New("username must be 3-20 characters of letters, digits, underscores or hyphens")
	}
	return nil
}

func validateEmail(s string) error {
	if !validation.Email(strings.TrimSpace(s)) {
		return errors.New("email must be a valid address")
	}
	return nil
}

func validatePassword(s string) error {
	if problem := validation.PasswordProblem(s); problem != "" {
		return errors.New(problem)
	}
	return nil
}
