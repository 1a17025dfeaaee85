package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrExpiredToken       = errors.New("access token has expired")
)

// TokenClaims represents the claims carried by an access token
type TokenClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in token
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// NewTokenService builds the access token strategy selected in config
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	if cfg.TokenStrategy == config.TokenStrategyJWT {
		return NewJWTService(cfg.TokenKey)
	}
	return NewPasetoService(cfg.TokenKey)
}
