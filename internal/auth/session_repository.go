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

// SessionRepository handles session persistence
type SessionRepository struct {
	db bun.IDB
}

func NewSessionRepository(db bun.IDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, s *Session) error {
	dbSession := &database.Session{
		ID:           s.ID,
		UserID:       s.UserID,
		SessionToken: s.SessionToken,
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    s.CreatedAt,
	}

	_, err := r.db.NewInsert().
		Model(dbSession).
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok && constraint == database.ConstraintSessionsToken {
			return user.ErrDuplicateToken
		}
		return fmt.Errorf("failed to store session: %w: %w", ErrStoreUnavailable, err)
	}

	return nil
}

// GetByToken retrieves a session. Expiry is left to the caller.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	dbSession := new(database.Session)
	err := r.db.NewSelect().
		Model(dbSession).
		Where("session_token = ?", token).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w: %w", ErrStoreUnavailable, err)
	}

	return mapDBSessionToModel(dbSession), nil
}

// Delete removes one session
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("session_token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w: %w", ErrStoreUnavailable, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w: %w", ErrStoreUnavailable, err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteByUser revokes every session of a user
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user sessions: %w: %w", ErrStoreUnavailable, err)
	}

	return result.RowsAffected()
}

// DeleteExpired removes sessions that expired before now.
// Lookups already treat them as invalid, so this only reclaims space.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.Session)(nil)).
		Where("expires_at < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w: %w", ErrStoreUnavailable, err)
	}

	return result.RowsAffected()
}

func mapDBSessionToModel(dbs *database.Session) *Session {
	return &Session{
		ID:           dbs.ID,
		UserID:       dbs.UserID,
		SessionToken: dbs.SessionToken,
		ExpiresAt:    dbs.ExpiresAt,
		CreatedAt:    dbs.CreatedAt,
	}
}
