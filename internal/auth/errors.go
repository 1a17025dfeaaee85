package auth

import (
	"errors"

	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// Expected outcomes of the credential workflows. Callers branch on these with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrEmailNotVerified   = errors.New("email not verified, please check your inbox")
	ErrInvalidToken       = errors.New("invalid or unknown token")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrTokenExpired       = errors.New("token has expired")
	ErrEmailNotFound      = errors.New("no account registered with that email")
	ErrSessionExpired     = errors.New("session has expired")

	// ErrNotSupported is returned by workflows that need the database provider
	ErrNotSupported = errors.New("operation not supported by the configured credential provider")

	// ErrStoreUnavailable wraps every unexpected credential store failure
	ErrStoreUnavailable = user.ErrStoreUnavailable
)

// Repository lookups that miss
var (
	ErrResetTokenNotFound = errors.New("password reset token not found")
	ErrSessionNotFound    = errors.New("session not found")
)

// outcome returns the metrics label for err
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, user.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, user.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, user.ErrInvalidUsername), errors.Is(err, user.ErrInvalidEmail):
		return "invalid_input"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrAccountDeactivated):
		return "account_deactivated"
	case errors.Is(err, ErrEmailNotVerified):
		return "email_not_verified"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrSessionExpired):
		return "token_expired"
	case errors.Is(err, ErrEmailNotFound):
		return "email_not_found"
	case errors.Is(err, ErrNotSupported):
		return "not_supported"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
