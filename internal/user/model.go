package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID  `json:"id"`
	Username            string     `json:"username"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"` // Never expose password hash in JSON
	IsVerified          bool       `json:"is_verified"`
	IsActive            bool       `json:"is_active"`
	VerificationToken   *string    `json:"-"`
	VerificationExpires *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastLogin           *time.Time `json:"last_login,omitempty"`
}

// CanAuthenticate reports whether the account passes the active and verified gates
func (u *User) CanAuthenticate() bool {
	return u.IsActive && u.IsVerified
}

// VerificationExpired reports whether the pending verification token is unusable at now.
// A missing expiry counts as expired.
func (u *User) VerificationExpired(now time.Time) bool {
	if u.VerificationExpires == nil {
		return true
	}
	return now.After(*u.VerificationExpires)
}
