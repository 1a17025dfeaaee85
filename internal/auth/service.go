package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
	"github.com/redmonkez12/ai-data-assistant/internal/email"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
	"github.com/redmonkez12/ai-data-assistant/internal/metrics"
	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/token"
	"github.com/redmonkez12/ai-data-assistant/internal/user"
)

// tokenAttempts bounds reissues after an opaque token collision
const tokenAttempts = 3

// Operation names used as metric labels
const (
	OpRegister           = "register"
	OpAuthenticate       = "authenticate"
	OpLogin              = "login"
	OpRefresh            = "refresh"
	OpLogout             = "logout"
	OpVerifyEmail        = "verify_email"
	OpResendVerification = "resend_verification"
	OpRequestReset       = "request_password_reset"
	OpResetPassword      = "reset_password"
	OpPurge              = "purge_expired"
)

// Notifier is the outbound notification dispatcher. A returned error means the
// message was not accepted; callers treat that as non-fatal.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, username, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, username, token string) error
	SendWelcomeEmail(ctx context.Context, toEmail, username string) error
}

// ServiceDeps collects the collaborators of Service. Store and Notifier are nil
// when the static provider is active.
type ServiceDeps struct {
	Store    Store
	Provider CredentialProvider
	Tokens   TokenService
	Hasher   *password.Hasher
	Issuer   *token.Issuer
	Notifier Notifier
	Metrics  *metrics.AuthMetrics
	Logger   *logging.Logger
}

// Service handles authentication business logic
type Service struct {
	store     Store
	directory *user.Directory
	provider  CredentialProvider
	tokens    TokenService
	hasher    *password.Hasher
	issuer    *token.Issuer
	notifier  Notifier
	metrics   *metrics.AuthMetrics
	logger    *logging.Logger

	accessTokenDuration time.Duration
	resetTokenDuration  time.Duration
	sessionDuration     time.Duration
	verificationTTL     time.Duration
}

func NewService(deps ServiceDeps, cfg config.AuthConfig) *Service {
	s := &Service{
		store:               deps.Store,
		provider:            deps.Provider,
		tokens:              deps.Tokens,
		hasher:              deps.Hasher,
		issuer:              deps.Issuer,
		notifier:            deps.Notifier,
		metrics:             deps.Metrics,
		logger:              deps.Logger,
		accessTokenDuration: cfg.AccessTokenDuration,
		resetTokenDuration:  cfg.ResetTokenTTL,
		sessionDuration:     cfg.SessionTTL,
		verificationTTL:     cfg.VerificationTokenTTL,
	}

	if s.store != nil {
		s.directory = user.NewDirectory(s.store.Users(), s.hasher, s.issuer, s.verificationTTL)
	}

	return s
}

// Mode reports the active credential provider
func (s *Service) Mode() string {
	return s.provider.Mode()
}

// SupportsAccounts reports whether registration, verification, reset and
// sessions are available
func (s *Service) SupportsAccounts() bool {
	return s.store != nil
}

// User returns the account behind an access token
func (s *Service) User(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.provider.User(ctx, id)
}

// Register creates an unverified account and sends its verification email.
// The account exists even when the email could not be sent.
func (s *Service) Register(ctx context.Context, username, emailAddr, plaintext string) (result *RegisterResult, err error) {
	defer s.observe(ctx, OpRegister, &err)

	if s.store == nil {
		return nil, ErrNotSupported
	}

	newUser, err := s.directory.CreateUser(ctx, username, emailAddr, plaintext)
	if err != nil {
		return nil, err
	}

	verificationToken := *newUser.VerificationToken
	sent := s.notify(ctx, email.KindVerification, newUser, func(ctx context.Context) error {
		return s.notifier.SendVerificationEmail(ctx, newUser.Email, newUser.Username, verificationToken)
	})

	return &RegisterResult{
		User:              newUser,
		VerificationToken: verificationToken,
		EmailSent:         sent,
	}, nil
}

// Authenticate checks credentials with the active provider
func (s *Service) Authenticate(ctx context.Context, identifier, plaintext string) (u *user.User, err error) {
	defer s.observe(ctx, OpAuthenticate, &err)

	return s.provider.Authenticate(ctx, identifier, plaintext)
}

// Login authenticates and issues an access token. With a credential store a
// refresh session is opened as well.
func (s *Service) Login(ctx context.Context, identifier, plaintext string) (result *LoginResult, err error) {
	defer s.observe(ctx, OpLogin, &err)

	u, err := s.provider.Authenticate(ctx, identifier, plaintext)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, s.store, u)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: u, Tokens: *tokens}, nil
}

// RefreshSession rotates a live session: the presented token is deleted and a
// new session and access token are issued.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (result *LoginResult, err error) {
	defer s.observe(ctx, OpRefresh, &err)

	if s.store == nil {
		return nil, ErrNotSupported
	}

	err = s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		u, err := s.liveSessionUser(ctx, tx, refreshToken)
		if err != nil {
			return err
		}

		// Revoke old session before issuing a new one to prevent reuse
		if err := tx.Sessions().Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		tokens, err := s.issueTokens(ctx, tx, u)
		if err != nil {
			return err
		}

		result = &LoginResult{User: u, Tokens: *tokens}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ValidateSession returns the owner of a live session
func (s *Service) ValidateSession(ctx context.Context, refreshToken string) (*user.User, error) {
	if s.store == nil {
		return nil, ErrNotSupported
	}
	return s.liveSessionUser(ctx, s.store, refreshToken)
}

// Logout deletes the session. Unknown sessions are not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) (err error) {
	defer s.observe(ctx, OpLogout, &err)

	if s.store == nil || refreshToken == "" {
		return nil
	}

	err = s.store.Sessions().Delete(ctx, refreshToken)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// VerifyEmail consumes a verification token. An already verified account is
// rejected rather than treated as success.
func (s *Service) VerifyEmail(ctx context.Context, verificationToken string) (result *VerifyResult, err error) {
	defer s.observe(ctx, OpVerifyEmail, &err)

	if s.store == nil {
		return nil, ErrNotSupported
	}
	if verificationToken == "" {
		return nil, ErrInvalidToken
	}

	users := s.store.Users()

	u, err := users.GetByVerificationToken(ctx, verificationToken)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if u.VerificationExpired(s.issuer.Now()) {
		return nil, ErrTokenExpired
	}

	// The token must still be pending when the row is written; a concurrent
	// request that consumed it first wins
	if err := users.ConsumeVerificationToken(ctx, u.ID, verificationToken); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	sent := s.notify(ctx, email.KindWelcome, u, func(ctx context.Context) error {
		return s.notifier.SendWelcomeEmail(ctx, u.Email, u.Username)
	})

	return &VerifyResult{Username: u.Username, WelcomeSent: sent}, nil
}

// ResendVerification replaces the pending verification token of an
// unverified account and emails the new one
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) (result *TokenResult, err error) {
	defer s.observe(ctx, OpResendVerification, &err)

	if s.store == nil {
		return nil, ErrNotSupported
	}

	users := s.store.Users()

	u, err := users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}

	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}

	tok, err := s.withFreshToken(s.verificationTTL, func(tok token.Token) error {
		return users.UpdateVerificationToken(ctx, u.ID, tok.Value, tok.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}

	sent := s.notify(ctx, email.KindVerification, u, func(ctx context.Context) error {
		return s.notifier.SendVerificationEmail(ctx, u.Email, u.Username, tok.Value)
	})

	return &TokenResult{Token: tok.Value, ExpiresAt: tok.ExpiresAt, EmailSent: sent}, nil
}

// RequestPasswordReset issues a reset token for the account with that email,
// replacing any earlier one. Unknown emails are reported as ErrEmailNotFound.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (result *TokenResult, err error) {
	defer s.observe(ctx, OpRequestReset, &err)

	if s.store == nil {
		return nil, ErrNotSupported
	}

	u, err := s.store.Users().GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, err
	}

	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	resets := s.store.PasswordResets()
	tok, err := s.withFreshToken(s.resetTokenDuration, func(tok token.Token) error {
		return resets.Upsert(ctx, u.ID, tok.Value, tok.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}

	sent := s.notify(ctx, email.KindPasswordReset, u, func(ctx context.Context) error {
		return s.notifier.SendPasswordResetEmail(ctx, u.Email, u.Username, tok.Value)
	})

	return &TokenResult{Token: tok.Value, ExpiresAt: tok.ExpiresAt, EmailSent: sent}, nil
}

// ResetPassword consumes a reset token and sets a new password. The token is
// deleted and every session of the user is revoked in the same transaction.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) (err error) {
	defer s.observe(ctx, OpResetPassword, &err)

	if s.store == nil {
		return ErrNotSupported
	}
	if resetToken == "" {
		return ErrInvalidToken
	}

	var revoked int64
	err = s.store.InTx(ctx, func(ctx context.Context, tx Store) error {
		rt, err := tx.PasswordResets().GetByToken(ctx, resetToken)
		if err != nil {
			if errors.Is(err, ErrResetTokenNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		if rt.IsExpired(s.issuer.Now()) {
			return ErrTokenExpired
		}

		passwordHash, err := s.hasher.Hash(newPassword)
		if err != nil {
			if errors.Is(err, password.ErrTooLong) {
				return err
			}
			return fmt.Errorf("failed to hash password: %w", err)
		}

		if err := tx.Users().UpdatePassword(ctx, rt.UserID, passwordHash); err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		// Single use: a concurrent reset that already consumed the token loses
		if err := tx.PasswordResets().Delete(ctx, resetToken); err != nil {
			if errors.Is(err, ErrResetTokenNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		revoked, err = tx.Sessions().DeleteByUser(ctx, rt.UserID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("password reset", "sessions_revoked", revoked)
	return nil
}

// PurgeExpired deletes expired reset tokens and sessions
func (s *Service) PurgeExpired(ctx context.Context) (result *PurgeResult, err error) {
	defer s.observe(ctx, OpPurge, &err)

	if s.store == nil {
		return nil, ErrNotSupported
	}

	now := s.issuer.Now()
	result = &PurgeResult{}

	if result.ResetTokens, err = s.store.PasswordResets().DeleteExpired(ctx, now); err != nil {
		return nil, err
	}
	if result.Sessions, err = s.store.Sessions().DeleteExpired(ctx, now); err != nil {
		return nil, err
	}

	return result, nil
}

// liveSessionUser resolves an unexpired session to its active owner
func (s *Service) liveSessionUser(ctx context.Context, store Store, refreshToken string) (*user.User, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	sess, err := store.Sessions().GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if sess.IsExpired(s.issuer.Now()) {
		return nil, ErrSessionExpired
	}

	u, err := store.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}

	return u, nil
}

// issueTokens creates an access token and, when store is not nil, a session
func (s *Service) issueTokens(ctx context.Context, store Store, u *user.User) (*AuthTokens, error) {
	accessToken, err := s.tokens.CreateToken(u.ID, u.Email, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	tokens := &AuthTokens{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTokenDuration.Seconds()),
	}

	if store == nil {
		return tokens, nil
	}

	// Each attempt gets its own savepoint so a collision does not abort the
	// caller's transaction
	tok, err := s.withFreshToken(s.sessionDuration, func(tok token.Token) error {
		return store.InTx(ctx, func(ctx context.Context, tx Store) error {
			return tx.Sessions().Create(ctx, &Session{
				ID:           uuid.New(),
				UserID:       u.ID,
				SessionToken: tok.Value,
				ExpiresAt:    tok.ExpiresAt,
				CreatedAt:    s.issuer.Now(),
			})
		})
	})
	if err != nil {
		return nil, err
	}

	tokens.RefreshToken = tok.Value
	return tokens, nil
}

// withFreshToken issues a token and passes it to store, reissuing when store
// reports a collision with an existing token
func (s *Service) withFreshToken(ttl time.Duration, store func(token.Token) error) (token.Token, error) {
	for attempt := 1; ; attempt++ {
		tok, err := s.issuer.Issue(ttl)
		if err != nil {
			return token.Token{}, fmt.Errorf("failed to issue token: %w", err)
		}

		err = store(tok)
		if err == nil {
			return tok, nil
		}
		if errors.Is(err, user.ErrDuplicateToken) && attempt < tokenAttempts {
			continue
		}
		return token.Token{}, err
	}
}

// notify runs send and reports whether the dispatcher accepted the message
func (s *Service) notify(ctx context.Context, kind email.Kind, u *user.User, send func(context.Context) error) bool {
	if s.notifier == nil {
		s.logger.Warn("no email transport configured", "kind", string(kind), "user_id", u.ID.String())
		s.metrics.Notification(string(kind), false)
		return false
	}

	if err := send(ctx); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to send email",
			"kind", string(kind),
			"user_id", u.ID.String(),
			"error", err,
		)
		s.metrics.Notification(string(kind), false)
		return false
	}

	s.metrics.Notification(string(kind), true)
	return true
}

// observe records the outcome of an operation. Store failures are logged here
// so every caller does not have to.
func (s *Service) observe(ctx context.Context, operation string, err *error) {
	s.metrics.Operation(operation, outcome(*err))

	if *err != nil && errors.Is(*err, ErrStoreUnavailable) {
		logging.GetLoggerFromContext(ctx).Error("credential store failure",
			"operation", operation,
			"error", *err,
		)
	}
}
