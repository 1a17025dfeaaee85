// Package ratelimit throttles abuse-prone auth endpoints with fixed windows in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the limiter thresholds
type Config struct {
	// IPMaxRequests per IPWindow per purpose
	IPMaxRequests int
	IPWindow      time.Duration
	// EmailCooldown between emails sent to one address for one purpose
	EmailCooldown time.Duration
}

// DefaultConfig allows 10 requests per 15 minutes per IP and one email every 2 minutes
func DefaultConfig() Config {
	return Config{
		IPMaxRequests: 10,
		IPWindow:      15 * time.Minute,
		EmailCooldown: 2 * time.Minute,
	}
}

// Limiter keeps counters in Redis so limits hold across API replicas
type Limiter struct {
	client *redis.Client
	cfg    Config
}

func NewLimiter(client *redis.Client, cfg Config) *Limiter {
	return &Limiter{client: client, cfg: cfg}
}

func ipKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func cooldownKey(purpose, email string) string {
	return fmt.Sprintf("ratelimit:cooldown:%s:%s", purpose, strings.ToLower(email))
}

// CheckIPRateLimitWithPurpose reports whether ip has used up its window for purpose
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	val, err := l.client.Get(ctx, ipKey(purpose, ip)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read ip counter: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return false, fmt.Errorf("failed to parse ip counter: %w", err)
	}

	return count >= l.cfg.IPMaxRequests, nil
}

// RecordIPRequestWithPurpose counts one request. The window starts at the first request.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(purpose, ip)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment ip counter: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, key, l.cfg.IPWindow).Err(); err != nil {
			return fmt.Errorf("failed to set ip window: %w", err)
		}
	}

	return nil
}

// CheckEmailCooldown reports whether an email for purpose was sent to email recently
func (l *Limiter) CheckEmailCooldown(ctx context.Context, purpose, email string) (bool, error) {
	n, err := l.client.Exists(ctx, cooldownKey(purpose, email)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check email cooldown: %w", err)
	}
	return n > 0, nil
}

// SetEmailCooldown starts the cooldown for email and purpose
func (l *Limiter) SetEmailCooldown(ctx context.Context, purpose, email string) error {
	if err := l.client.Set(ctx, cooldownKey(purpose, email), "1", l.cfg.EmailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
