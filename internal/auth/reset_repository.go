package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/ai-data-assistant/internal/database"
	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// ResetTokenRepository handles password reset token persistence
type ResetTokenRepository struct {
	db bun.IDB
}

func NewResetTokenRepository(db bun.IDB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Upsert stores a reset token, superseding the user's previous one
func (r *ResetTokenRepository) Upsert(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	dbToken := &database.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(dbToken).
		On("CONFLICT (user_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Returning("NULL").
		Exec(ctx)

	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok && constraint == database.ConstraintResetTokensToken {
			return user.ErrDuplicateToken
		}
		return fmt.Errorf("failed to store password reset token: %w: %w", ErrStoreUnavailable, err)
	}

	return nil
}

// GetByToken retrieves a reset token regardless of expiry
func (r *ResetTokenRepository) GetByToken(ctx context.Context, token string) (*PasswordResetToken, error) {
	dbToken := new(database.PasswordResetToken)
	err := r.db.NewSelect().
		Model(dbToken).
		Where("token = ?", token).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("failed to get password reset token: %w: %w", ErrStoreUnavailable, err)
	}

	return &PasswordResetToken{
		ID:        dbToken.ID,
		UserID:    dbToken.UserID,
		Token:     dbToken.Token,
		ExpiresAt: dbToken.ExpiresAt,
		CreatedAt: dbToken.CreatedAt,
	}, nil
}

// Delete removes a used reset token
func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	result, err := r.db.NewDelete().
		Model((*database.PasswordResetToken)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete password reset token: %w: %w", ErrStoreUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w: %w", ErrStoreUnavailable, err)
	}

	if rowsAffected == 0 {
		return ErrResetTokenNotFound
	}

	return nil
}

// DeleteExpired removes tokens that expired before now
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.PasswordResetToken)(nil)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired reset tokens: %w: %w", ErrStoreUnavailable, err)
	}

	return result.RowsAffected()
}
