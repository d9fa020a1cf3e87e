package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLimit  = 10
	defaultWindow = time.Minute
)

// Limiter is a fixed-window per-IP rate limiter backed by Redis.
// Each (ip, purpose) pair gets its own counter so that, say, login
// attempts don't eat into the password-reset budget.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{
		client: client,
		limit:  defaultLimit,
		window: defaultWindow,
	}
}

// NewLimiterWithConfig creates a limiter with a custom limit and window.
func NewLimiterWithConfig(client *redis.Client, limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &Limiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func rateLimitKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

// CheckIPRateLimit reports whether the IP has exhausted its budget for
// the given purpose within the current window.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, rateLimitKey(ip, purpose)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get rate limit counter: %w", err)
	}
	return count >= l.limit, nil
}

// RecordIPRequest increments the counter for the IP and purpose. The
// window starts at the first request and is not extended by later ones.
func (l *Limiter) RecordIPRequest(ctx context.Context, ip, purpose string) error {
	key := rateLimitKey(ip, purpose)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}
	return nil
}
