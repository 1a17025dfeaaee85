package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { _ = client.Close() })

	return NewLimiter(client, Config{IPMaxRequests: 3, IPWindow: time.Minute, EmailCooldown: 2 * time.Minute}), mock
}

func TestCheckIPRateLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("no counter", func(t *testing.T) {
		l, mock := newTestLimiter(t)
		mock.ExpectGet("ratelimit:ip:login:1.2.3.4").RedisNil()

		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "login")
		require.NoError(t, err)
		assert.False(t, exceeded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("under limit", func(t *testing.T) {
		l, mock := newTestLimiter(t)
		mock.ExpectGet("ratelimit:ip:login:1.2.3.4").SetVal("2")

		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "login")
		require.NoError(t, err)
		assert.False(t, exceeded)
	})

	t.Run("at limit", func(t *testing.T) {
		l, mock := newTestLimiter(t)
		mock.ExpectGet("ratelimit:ip:register:1.2.3.4").SetVal("3")

		exceeded, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "register")
		require.NoError(t, err)
		assert.True(t, exceeded)
	})

	t.Run("redis error", func(t *testing.T) {
		l, mock := newTestLimiter(t)
		mock.ExpectGet("ratelimit:ip:login:1.2.3.4").SetErr(errors.New("connection refused"))

		_, err := l.CheckIPRateLimitWithPurpose(ctx, "1.2.3.4", "login")
		assert.Error(t, err)
	})
}

func TestRecordIPRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("first request opens window", func(t *testing.T) {
		l, mock := newTestLimiter(t)
		mock.ExpectIncr("ratelimit:ip:login:1.2.3.4").SetVal(1)
		mock.ExpectExpire("ratelimit:ip:login:1.2.3.4", time.Minute).SetVal(true)

		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "1.2.3.4", "login"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("later request keeps window", func(t *testing.T) {
		l, mock := newTestLimiter(t)
		mock.ExpectIncr("ratelimit:ip:login:1.2.3.4").SetVal(2)

		require.NoError(t, l.RecordIPRequestWithPurpose(ctx, "1.2.3.4", "login"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEmailCooldown(t *testing.T) {
	ctx := context.Background()
	l, mock := newTestLimiter(t)

	mock.ExpectExists("ratelimit:cooldown:forgot-password:alice@x.com").SetVal(0)
	mock.ExpectSet("ratelimit:cooldown:forgot-password:alice@x.com", "1", 2*time.Minute).SetVal("OK")
	mock.ExpectExists("ratelimit:cooldown:forgot-password:alice@x.com").SetVal(1)

	onCooldown, err := l.CheckEmailCooldown(ctx, "forgot-password", "Alice@x.com")
	require.NoError(t, err)
	assert.False(t, onCooldown)

	require.NoError(t, l.SetEmailCooldown(ctx, "forgot-password", "alice@x.com"))

	onCooldown, err = l.CheckEmailCooldown(ctx, "forgot-password", "alice@x.com")
	require.NoError(t, err)
	assert.True(t, onCooldown)

	assert.NoError(t, mock.ExpectationsWereMet())
}
