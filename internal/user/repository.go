package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/ai-data-assistant/internal/database"
)

// Store is the persistence contract the directory and auth workflows depend on
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByVerificationToken(ctx context.Context, token string) (*User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) error
	// ConsumeVerificationToken verifies the user only while token is still the
	// pending one; ErrNotFound means it was already consumed or replaced
	ConsumeVerificationToken(ctx context.Context, id uuid.UUID, token string) error
	UpdateVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Count(ctx context.Context) (int, error)
}

// Repository handles user data persistence
type Repository struct {
	db bun.IDB
}

// NewRepository accepts a *bun.DB or a bun.Tx
func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, u *User) error {
	dbUser := mapModelToDBUser(u)

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("NULL").
		Exec(ctx)

	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			switch constraint {
			case database.ConstraintUsersUsername:
				return ErrDuplicateUsername
			case database.ConstraintUsersEmail:
				return ErrDuplicateEmail
			case database.ConstraintUsersVerificationToken:
				return ErrDuplicateToken
			}
		}
		return fmt.Errorf("failed to create user: %w: %w", ErrStoreUnavailable, err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "id", "id = ?", id)
}

// GetByUsername retrieves a user by exact username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username", "username = ?", username)
}

// GetByEmail retrieves a user by exact email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email", "email = ?", email)
}

// GetByIdentifier matches either the username or the email
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return r.getOne(ctx, "identifier", "(username = ? OR email = ?)", identifier, identifier)
}

// GetByVerificationToken retrieves the user holding a pending verification token
func (r *Repository) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	return r.getOne(ctx, "verification token", "verification_token = ?", token)
}

func (r *Repository) getOne(ctx context.Context, by, where string, args ...any) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where(where, args...).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w: %w", by, ErrStoreUnavailable, err)
	}

	return mapDBUserToModel(dbUser), nil
}

// MarkVerified marks a user as verified and clears the verification token
func (r *Repository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, "mark user verified", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("is_verified = ?", true).
			Set("verification_token = NULL").
			Set("verification_expires = NULL")
	})
}

// ConsumeVerificationToken marks a user verified if token is still pending.
// Concurrent consumers of the same token race on this row; one wins.
func (r *Repository) ConsumeVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(ctx, "consume verification token", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("is_verified = ?", true).
			Set("verification_token = NULL").
			Set("verification_expires = NULL").
			Where("verification_token = ?", token).
			Where("is_verified = ?", false)
	})
}

// UpdateVerificationToken overwrites the pending verification token
func (r *Repository) UpdateVerificationToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	err := r.update(ctx, "update verification token", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("verification_token = ?", token).
			Set("verification_expires = ?", expiresAt)
	})
	if constraint, ok := database.UniqueViolation(err); ok && constraint == database.ConstraintUsersVerificationToken {
		return ErrDuplicateToken
	}
	return err
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(ctx, "update password", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("password_hash = ?", passwordHash)
	})
}

// UpdateLastLogin records a successful authentication
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, "update last login", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("last_login = ?", at)
	})
}

// SetActive flips the is_active flag
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.update(ctx, "set active", id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("is_active = ?", active)
	})
}

func (r *Repository) update(ctx context.Context, op string, id uuid.UUID, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil))

	result, err := set(q).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to %s: %w: %w", op, ErrStoreUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w: %w", ErrStoreUnavailable, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Count returns the number of registered users
func (r *Repository) Count(ctx context.Context) (int, error) {
	n, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

func mapModelToDBUser(u *User) *database.User {
	return &database.User{
		ID:                  u.ID,
		Username:            u.Username,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		IsVerified:          u.IsVerified,
		IsActive:            u.IsActive,
		VerificationToken:   u.VerificationToken,
		VerificationExpires: u.VerificationExpires,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
		LastLogin:           u.LastLogin,
	}
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                  dbu.ID,
		Username:            dbu.Username,
		Email:               dbu.Email,
		PasswordHash:        dbu.PasswordHash,
		IsVerified:          dbu.IsVerified,
		IsActive:            dbu.IsActive,
		VerificationToken:   dbu.VerificationToken,
		VerificationExpires: dbu.VerificationExpires,
		CreatedAt:           dbu.CreatedAt,
		UpdatedAt:           dbu.UpdatedAt,
		LastLogin:           dbu.LastLogin,
	}
}
