package redis

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// RateLimiter is a fixed-window request counter shared by every server
// instance pointing at the same Redis.
type RateLimiter struct {
	client *Client
	limit  int64
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter allows limit requests per key per window.
func NewRateLimiter(client *Client, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: logger,
	}
}

// Allow counts one request for key. Redis errors let the request through.
func (l *RateLimiter) Allow(ctx context.Context, key string) bool {
	bucket := time.Now().Truncate(l.window).Unix()
	n, err := l.client.IncrWindow(ctx, windowKey(key, bucket), l.window)
	if err != nil {
		l.logger.Warn("rate limiter unavailable", "error", err)
		return true
	}
	return n <= l.limit
}

func windowKey(key string, bucket int64) string {
	return PrefixRateLimit + key + ":" + strconv.FormatInt(bucket, 10)
}
