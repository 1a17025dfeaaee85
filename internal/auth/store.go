package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// ResetTokenStore persists password reset tokens, at most one per user
type ResetTokenStore interface {
	// Upsert replaces any existing token of the user
	Upsert(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionStore persists refresh sessions
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store is the credential store as one unit of work
type Store interface {
	Users() user.Store
	PasswordResets() ResetTokenStore
	Sessions() SessionStore
	// InTx runs fn against a transactional Store; fn's error rolls everything back
	InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// BunStore implements Store on postgres through bun
type BunStore struct {
	db   *bun.DB
	tx   *bun.Tx // set inside a transaction
	conn bun.IDB
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db, conn: db}
}

func (s *BunStore) Users() user.Store {
	return user.NewRepository(s.conn)
}

func (s *BunStore) PasswordResets() ResetTokenStore {
	return NewResetTokenRepository(s.conn)
}

func (s *BunStore) Sessions() SessionStore {
	return NewSessionRepository(s.conn)
}

// InTx opens a transaction, or a savepoint when called inside one. A failed
// statement aborts the whole postgres transaction, so callers that retry
// after an error must wrap each attempt in InTx.
func (s *BunStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	var fnErr error
	wrapped := func(ctx context.Context, tx bun.Tx) error {
		fnErr = fn(ctx, &BunStore{tx: &tx, conn: tx})
		return fnErr
	}

	var err error
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, nil, wrapped)
	} else {
		err = s.db.RunInTx(ctx, nil, wrapped)
	}
	if err != nil && fnErr == nil {
		// begin, savepoint or commit failed
		return fmt.Errorf("transaction failed: %w: %w", ErrStoreUnavailable, err)
	}
	return err
}
