package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// PasswordResetToken is the single live reset token of a user
type PasswordResetToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token is unusable at now
func (t *PasswordResetToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Session is a long-lived opaque refresh credential
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	SessionToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// IsExpired reports whether the session is unusable at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthTokens is returned to clients after login or refresh
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// LoginResult pairs the authenticated user with the tokens issued for them
type LoginResult struct {
	User   *user.User
	Tokens AuthTokens
}

// RegisterResult carries the raw verification token so the caller can
// report or redeliver it. EmailSent is false when dispatch failed.
type RegisterResult struct {
	User              *user.User
	VerificationToken string
	EmailSent         bool
}

// VerifyResult is returned by a successful email verification
type VerifyResult struct {
	Username    string
	WelcomeSent bool
}

// TokenResult is returned by workflows that issue a token by email
type TokenResult struct {
	Token     string
	ExpiresAt time.Time
	EmailSent bool
}

// PurgeResult counts rows removed by PurgeExpired
type PurgeResult struct {
	ResetTokens int64
	Sessions    int64
}
