package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/ai-data-assistant/internal/config"
)

func TestTokenServices(t *testing.T) {
	paseto, err := NewPasetoService(testKey)
	require.NoError(t, err)
	jwtService, err := NewJWTService(testKey)
	require.NoError(t, err)

	services := map[string]TokenService{
		"paseto": paseto,
		"jwt":    jwtService,
	}

	for name, svc := range services {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()

			tok, err := svc.CreateToken(userID, "alice@x.com", time.Minute)
			require.NoError(t, err)

			claims, err := svc.VerifyToken(tok)
			require.NoError(t, err)
			assert.Equal(t, userID.String(), claims.UserID)
			assert.Equal(t, "alice@x.com", claims.Email)
			assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

			_, err = svc.VerifyToken(tok + "x")
			assert.ErrorIs(t, err, ErrInvalidAccessToken)

			_, err = svc.VerifyToken("garbage")
			assert.ErrorIs(t, err, ErrInvalidAccessToken)

			expired, err := svc.CreateToken(userID, "alice@x.com", -time.Minute)
			require.NoError(t, err)
			_, err = svc.VerifyToken(expired)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenServices_RejectOtherKey(t *testing.T) {
	otherKey := []byte("fedcba9876543210fedcba9876543210")

	a, err := NewPasetoService(testKey)
	require.NoError(t, err)
	b, err := NewPasetoService(otherKey)
	require.NoError(t, err)

	tok, err := a.CreateToken(uuid.New(), "a@x.com", time.Minute)
	require.NoError(t, err)
	_, err = b.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	ja, err := NewJWTService(testKey)
	require.NoError(t, err)
	jb, err := NewJWTService(otherKey)
	require.NoError(t, err)

	tok, err = ja.CreateToken(uuid.New(), "a@x.com", time.Minute)
	require.NoError(t, err)
	_, err = jb.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)
}

func TestNewTokenService(t *testing.T) {
	svc, err := NewTokenService(config.AuthConfig{TokenStrategy: config.TokenStrategyJWT, TokenKey: testKey})
	require.NoError(t, err)
	assert.IsType(t, &JWTService{}, svc)

	svc, err = NewTokenService(config.AuthConfig{TokenStrategy: config.TokenStrategyPaseto, TokenKey: testKey})
	require.NoError(t, err)
	assert.IsType(t, &PasetoService{}, svc)

	_, err = NewTokenService(config.AuthConfig{TokenStrategy: config.TokenStrategyPaseto, TokenKey: []byte("short")})
	assert.Error(t, err)
	_, err = NewJWTService([]byte("short"))
	assert.Error(t, err)
}
