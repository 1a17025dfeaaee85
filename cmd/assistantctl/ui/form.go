package ui

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"

	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// RunUserForm asks for the fields of in that are still empty
func RunUserForm(in *UserInput) error {
	var fields []huh.Field

	if in.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Description("3-20 characters: letters, digits, _ or -").
			Value(&in.Username).
			Validate(validateUsername))
	}

	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("name@example.com").
			Value(&in.Email).
			Validate(validateEmail))
	}

	if in.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			Description("At least 8 characters with upper, lower, digit and special").
			EchoMode(huh.EchoModePassword).
			Value(&in.Password).
			Validate(validatePassword))
	}

	fields = append(fields, huh.NewConfirm().
		Title("Mark as verified?").
		Description("Skips the verification email, for admin accounts").
		Value(&in.Verified))

	form := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin())
	if err := form.Run(); err != nil {
		return err
	}

	in.Normalize()
	return nil
}

// RunPasswordForm asks for a password twice and returns it
func RunPasswordForm() (string, error) {
	var plaintext, confirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&plaintext).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("password is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != plaintext {
						return errors.New("passwords do not match")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return "", err
	}

	return plaintext, nil
}

// PrintUser prints an account summary.
func PrintUser(w io.Writer, title string, u *user.User) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintf(w, "  ID:       %s\n", u.ID)
	fmt.Fprintf(w, "  Username: %s\n", u.Username)
	fmt.Fprintf(w, "  Email:    %s\n", u.Email)
	fmt.Fprintf(w, "  Verified: %t\n", u.IsVerified)
	fmt.Fprintf(w, "  Active:   %t\n", u.IsActive)
	if u.LastLogin != nil {
		fmt.Fprintf(w, "  Last login: %s\n", u.LastLogin.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintln(w)
}

// Status is what the status command reports
type Status struct {
	Provider         string
	MigrationVersion int64
	Users            int
}

// PrintStatus prints the database summary.
func PrintStatus(w io.Writer, s Status) {
	fmt.Fprintln(w, titleStyle.Render("Credential store"))
	fmt.Fprintf(w, "  Provider:  %s\n", s.Provider)
	fmt.Fprintf(w, "  Migration: %d\n", s.MigrationVersion)
	fmt.Fprintf(w, "  Users:     %d\n", s.Users)
	fmt.Fprintln(w)
}

// PrintSuccess prints a success message.
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, successStyle.Render(msg))
}

// PrintHint prints secondary information.
func PrintHint(w io.Writer, msg string) {
	fmt.Fprintln(w, subtleStyle.Render(msg))
}

// PrintWarning prints a non-fatal problem.
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render("Warning: "+msg))
}

// PrintError prints an error message.
func PrintError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+msg))
}
