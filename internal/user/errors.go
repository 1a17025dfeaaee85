package user

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateToken    = errors.New("verification token already in use")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidEmail      = errors.New("invalid email format")

	// ErrStoreUnavailable marks failures of the credential store itself
	ErrStoreUnavailable = errors.New("credential store unavailable")
)
