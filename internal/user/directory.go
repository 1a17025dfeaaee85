package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/token"
	"github.com/redmonkez12/ai-data-assistant/internal/validation"
)

// tokenAttempts bounds reissues after a verification token collision
const tokenAttempts = 3

// Directory creates users and looks them up. Username and email comparisons are
// exact and case sensitive.
type Directory struct {
	store           Store
	hasher          *password.Hasher
	issuer          *token.Issuer
	verificationTTL time.Duration
}

func NewDirectory(store Store, hasher *password.Hasher, issuer *token.Issuer, verificationTTL time.Duration) *Directory {
	return &Directory{
		store:           store,
		hasher:          hasher,
		issuer:          issuer,
		verificationTTL: verificationTTL,
	}
}

// CreateUser validates, hashes and inserts an unverified user holding a fresh
// verification token. The returned user carries the raw token for dispatch.
// Uniqueness is decided by the store's constraints, not by a prior lookup.
func (d *Directory) CreateUser(ctx context.Context, username, email, plaintext string) (*User, error) {
	return d.create(ctx, username, email, plaintext, false)
}

// CreateVerifiedUser inserts an account that is already verified and holds no
// verification token, for operator use. The account exists verified or not at all.
func (d *Directory) CreateVerifiedUser(ctx context.Context, username, email, plaintext string) (*User, error) {
	return d.create(ctx, username, email, plaintext, true)
}

func (d *Directory) create(ctx context.Context, username, email, plaintext string, verified bool) (*User, error) {
	if !validation.Username(username) {
		return nil, ErrInvalidUsername
	}
	if !validation.Email(email) {
		return nil, ErrInvalidEmail
	}

	passwordHash, err := d.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	for attempt := 1; ; attempt++ {
		now := d.issuer.Now()
		u := &User{
			ID:           uuid.New(),
			Username:     username,
			Email:        email,
			PasswordHash: passwordHash,
			IsVerified:   verified,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if !verified {
			tok, err := d.issuer.Issue(d.verificationTTL)
			if err != nil {
				return nil, fmt.Errorf("failed to issue verification token: %w", err)
			}
			u.VerificationToken = &tok.Value
			u.VerificationExpires = &tok.ExpiresAt
		}

		err = d.store.Create(ctx, u)
		if err == nil {
			return u, nil
		}
		if errors.Is(err, ErrDuplicateToken) && !verified && attempt < tokenAttempts {
			continue
		}
		return nil, err
	}
}

// FindByUsername returns ErrNotFound when no user has that exact username
func (d *Directory) FindByUsername(ctx context.Context, username string) (*User, error) {
	return d.store.GetByUsername(ctx, username)
}

// FindByEmail returns ErrNotFound when no user has that exact email
func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return d.store.GetByEmail(ctx, email)
}

// FindByIdentifier matches a username or an email
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return d.store.GetByIdentifier(ctx, identifier)
}

// ForceVerify marks an account verified without a token, for operator use
func (d *Directory) ForceVerify(ctx context.Context, identifier string) (*User, error) {
	u, err := d.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return u, nil
	}

	if err := d.store.MarkVerified(ctx, u.ID); err != nil {
		return nil, err
	}

	u.IsVerified = true
	u.VerificationToken = nil
	u.VerificationExpires = nil
	return u, nil
}

// SetActive deactivates or reactivates an account. Accounts are never deleted.
func (d *Directory) SetActive(ctx context.Context, identifier string, active bool) (*User, error) {
	u, err := d.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if err := d.store.SetActive(ctx, u.ID, active); err != nil {
		return nil, err
	}

	u.IsActive = active
	return u, nil
}

// Count returns the number of registered users
func (d *Directory) Count(ctx context.Context) (int, error) {
	return d.store.Count(ctx)
}
