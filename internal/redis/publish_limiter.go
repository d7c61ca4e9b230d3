package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PublishLimiter throttles outbound publishes per destination platform using
// a sliding-window count in Redis. Platform APIs rate-limit aggressively; the
// dispatcher checks this before every publish attempt.
type PublishLimiter interface {
	Allow(ctx context.Context, platform string) (bool, error)
	Limit() int
}

type slidingWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewPublishLimiter returns a Redis-backed sliding-window publish limiter.
// limit is the maximum number of publishes allowed per window per platform.
func NewPublishLimiter(client *redis.Client, limit int, window time.Duration) PublishLimiter {
	return &slidingWindowLimiter{client: client, limit: limit, window: window}
}

func (r *slidingWindowLimiter) Limit() int { return r.limit }

// Allow returns true when the publish is within the allowed rate, false when
// it should be rejected. It uses a Redis sorted set as a timestamp ring buffer.
func (r *slidingWindowLimiter) Allow(ctx context.Context, platform string) (bool, error) {
	now := time.Now().UnixNano()
	windowStart := now - r.window.Nanoseconds()
	rkey := "publimit:" + platform

	pipe := r.client.TxPipeline()
	// Evict timestamps that fell outside the window.
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(windowStart, 10))
	// Record this publish with the current nanosecond timestamp as both score and member.
	pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now), Member: strconv.FormatInt(now, 10)})
	// Count publishes still in the window.
	countCmd := pipe.ZCard(ctx, rkey)
	// Keep the key alive for at least one more window.
	pipe.Expire(ctx, rkey, r.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("publish limiter pipeline for %q: %w", platform, err)
	}

	return countCmd.Val() <= int64(r.limit), nil
}
