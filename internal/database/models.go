package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                  uuid.UUID  `bun:"id,pk,type:uuid"`
	Username            string     `bun:"username,notnull"`
	Email               string     `bun:"email,notnull"`
	PasswordHash        string     `bun:"password_hash,notnull"`
	IsVerified          bool       `bun:"is_verified,notnull"`
	IsActive            bool       `bun:"is_active,notnull"`
	VerificationToken   *string    `bun:"verification_token"`
	VerificationExpires *time.Time `bun:"verification_expires"`
	CreatedAt           time.Time  `bun:"created_at,notnull"`
	UpdatedAt           time.Time  `bun:"updated_at,notnull"`
	LastLogin           *time.Time `bun:"last_login"`
}

// PasswordResetToken is the password_reset_tokens table row, at most one per user
type PasswordResetToken struct {
	bun.BaseModel `bun:"table:password_reset_tokens,alias:prt"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	UserID    uuid.UUID `bun:"user_id,notnull,type:uuid"`
	Token     string    `bun:"token,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Session is the sessions table row
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	UserID       uuid.UUID `bun:"user_id,notnull,type:uuid"`
	SessionToken string    `bun:"session_token,notnull"`
	ExpiresAt    time.Time `bun:"expires_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}
