// Package validation holds the shared validator instance and the account
// field rules used by the directory and the HTTP request types.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 20
	PasswordMinLength = 8
	EmailMaxLength    = 254
)

const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	_ = validate.RegisterValidation("username", validateUsername)
	_ = validate.RegisterValidation("strongpassword", validateStrongPassword)
}

// Struct validates v against its `validate` tags
func Struct(v any) error {
	return validate.Struct(v)
}

// Username reports whether s is 3-20 characters of letters, digits, underscore or hyphen
func Username(s string) bool {
	return validate.Var(s, "required,username") == nil
}

// Email reports whether s is shaped like an email address
func Email(s string) bool {
	return validate.Var(s, fmt.Sprintf("required,max=%d,email", EmailMaxLength)) == nil
}

// StrongPassword reports whether s satisfies the password policy
func StrongPassword(s string) bool {
	return PasswordProblem(s) == ""
}

// PasswordProblem describes the first policy rule s breaks, or "" when it passes
func PasswordProblem(s string) string {
	if len(s) < PasswordMinLength {
		return fmt.Sprintf("password must be at least %d characters long", PasswordMinLength)
	}

	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	switch {
	case !upper:
		return "password must contain at least one uppercase letter"
	case !lower:
		return "password must contain at least one lowercase letter"
	case !digit:
		return "password must contain at least one number"
	case !special:
		return "password must contain at least one special character"
	}

	return ""
}

func validateUsername(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return len(s) >= UsernameMinLength && len(s) <= UsernameMaxLength && usernamePattern.MatchString(s)
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	return StrongPassword(fl.Field().String())
}

// Message turns a validation error into a single human readable sentence
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email format"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "username":
		return fmt.Sprintf("username must be %d-%d characters of letters, numbers, underscores and hyphens",
			UsernameMinLength, UsernameMaxLength)
	case "strongpassword":
		if problem := PasswordProblem(fe.Value().(string)); problem != "" {
			return problem
		}
		return "password is too weak"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Field returns the lowercased name of the first field that failed, or ""
func Field(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ""
	}
	return strings.ToLower(verrs[0].Field())
}
