package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// memStore is an in-memory Store with the uniqueness rules of the migrations.
// InTx snapshots the data and restores it when fn fails.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*user.User
	resets   map[uuid.UUID]*PasswordResetToken // keyed by user
	sessions map[string]*Session

	// failOps makes the named operation return a store failure
	failOps map[string]bool
	// collisions is the number of upcoming token writes reported as duplicates
	collisions int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*user.User{},
		resets:   map[uuid.UUID]*PasswordResetToken{},
		sessions: map[string]*Session{},
		failOps:  map[string]bool{},
	}
}

func (s *memStore) Users() user.Store                { return memUsers{s} }
func (s *memStore) PasswordResets() ResetTokenStore { return memResets{s} }
func (s *memStore) Sessions() SessionStore          { return memSessions{s} }

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	s.mu.Lock()
	users := make(map[uuid.UUID]*user.User, len(s.users))
	for k, v := range s.users {
		cp := *v
		users[k] = &cp
	}
	resets := make(map[uuid.UUID]*PasswordResetToken, len(s.resets))
	for k, v := range s.resets {
		cp := *v
		resets[k] = &cp
	}
	sessions := make(map[string]*Session, len(s.sessions))
	for k, v := range s.sessions {
		cp := *v
		sessions[k] = &cp
	}
	s.mu.Unlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.users, s.resets, s.sessions = users, resets, sessions
		s.mu.Unlock()
		return err
	}
	return nil
}

// fail must be called with mu held
func (s *memStore) fail(op string) error {
	if s.failOps[op] {
		return fmt.Errorf("%s: %w: connection refused", op, ErrStoreUnavailable)
	}
	return nil
}

// collide must be called with mu held
func (s *memStore) collide() bool {
	if s.collisions > 0 {
		s.collisions--
		return true
	}
	return false
}

func (s *memStore) user(id uuid.UUID) *user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (s *memStore) sessionCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

type memUsers struct{ s *memStore }

func (m memUsers) Create(_ context.Context, u *user.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("users.create"); err != nil {
		return err
	}
	if m.s.collide() {
		return user.ErrDuplicateToken
	}
	for _, existing := range m.s.users {
		switch {
		case existing.Username == u.Username:
			return user.ErrDuplicateUsername
		case existing.Email == u.Email:
			return user.ErrDuplicateEmail
		}
	}

	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m memUsers) find(op string, match func(*user.User) bool) (*user.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail(op); err != nil {
		return nil, err
	}
	for _, u := range m.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return m.find("users.get", func(u *user.User) bool { return u.ID == id })
}

func (m memUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	return m.find("users.get", func(u *user.User) bool { return u.Username == username })
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return m.find("users.get", func(u *user.User) bool { return u.Email == email })
}

func (m memUsers) GetByIdentifier(_ context.Context, identifier string) (*user.User, error) {
	return m.find("users.get", func(u *user.User) bool {
		return u.Username == identifier || u.Email == identifier
	})
}

func (m memUsers) GetByVerificationToken(_ context.Context, token string) (*user.User, error) {
	return m.find("users.get", func(u *user.User) bool {
		return u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (m memUsers) update(op string, id uuid.UUID, apply func(*user.User) error) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail(op); err != nil {
		return err
	}
	u, ok := m.s.users[id]
	if !ok {
		return user.ErrNotFound
	}
	return apply(u)
}

func (m memUsers) MarkVerified(_ context.Context, id uuid.UUID) error {
	return m.update("users.mark_verified", id, func(u *user.User) error {
		u.IsVerified = true
		u.VerificationToken = nil
		u.VerificationExpires = nil
		return nil
	})
}

func (m memUsers) ConsumeVerificationToken(_ context.Context, id uuid.UUID, token string) error {
	return m.update("users.mark_verified", id, func(u *user.User) error {
		if u.IsVerified || u.VerificationToken == nil || *u.VerificationToken != token {
			return user.ErrNotFound
		}
		u.IsVerified = true
		u.VerificationToken = nil
		u.VerificationExpires = nil
		return nil
	})
}

func (m memUsers) UpdateVerificationToken(_ context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	return m.update("users.update_token", id, func(u *user.User) error {
		if m.s.collide() {
			return user.ErrDuplicateToken
		}
		u.VerificationToken = &token
		u.VerificationExpires = &expiresAt
		return nil
	})
}

func (m memUsers) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return m.update("users.update_password", id, func(u *user.User) error {
		u.PasswordHash = passwordHash
		return nil
	})
}

func (m memUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return m.update("users.update_last_login", id, func(u *user.User) error {
		u.LastLogin = &at
		return nil
	})
}

func (m memUsers) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return m.update("users.set_active", id, func(u *user.User) error {
		u.IsActive = active
		return nil
	})
}

func (m memUsers) Count(_ context.Context) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.fail("users.count"); err != nil {
		return 0, err
	}
	return len(m.s.users), nil
}

type memResets struct{ s *memStore }

func (m memResets) Upsert(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("resets.upsert"); err != nil {
		return err
	}
	if m.s.collide() {
		return user.ErrDuplicateToken
	}
	m.s.resets[userID] = &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (m memResets) GetByToken(_ context.Context, token string) (*PasswordResetToken, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("resets.get"); err != nil {
		return nil, err
	}
	for _, rt := range m.s.resets {
		if rt.Token == token {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, ErrResetTokenNotFound
}

func (m memResets) Delete(_ context.Context, token string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("resets.delete"); err != nil {
		return err
	}
	for id, rt := range m.s.resets {
		if rt.Token == token {
			delete(m.s.resets, id)
			return nil
		}
	}
	return ErrResetTokenNotFound
}

func (m memResets) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var n int64
	for id, rt := range m.s.resets {
		if rt.ExpiresAt.Before(now) {
			delete(m.s.resets, id)
			n++
		}
	}
	return n, nil
}

type memSessions struct{ s *memStore }

func (m memSessions) Create(_ context.Context, sess *Session) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("sessions.create"); err != nil {
		return err
	}
	if _, exists := m.s.sessions[sess.SessionToken]; exists || m.s.collide() {
		return user.ErrDuplicateToken
	}
	cp := *sess
	m.s.sessions[sess.SessionToken] = &cp
	return nil
}

func (m memSessions) GetByToken(_ context.Context, token string) (*Session, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("sessions.get"); err != nil {
		return nil, err
	}
	sess, ok := m.s.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (m memSessions) Delete(_ context.Context, token string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("sessions.delete"); err != nil {
		return err
	}
	if _, ok := m.s.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.s.sessions, token)
	return nil
}

func (m memSessions) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if err := m.s.fail("sessions.delete_by_user"); err != nil {
		return 0, err
	}
	var n int64
	for token, sess := range m.s.sessions {
		if sess.UserID == userID {
			delete(m.s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var n int64
	for token, sess := range m.s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(m.s.sessions, token)
			n++
		}
	}
	return n, nil
}
