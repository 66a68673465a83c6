package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter keeps per-IP request counters in redis. It fails open: when
// redis is unavailable the dispatch path stays up and limiting is skipped.
type RateLimiter struct {
	redis *redis.Client
	log   *zap.Logger
}

func NewRateLimiter(rdb *redis.Client, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		redis: rdb,
		log:   log,
	}
}

// Allow increments the IP's counter for the window and reports whether it is
// still within the limit.
func (r *RateLimiter) Allow(ctx context.Context, scope, ip string, limit int, window time.Duration) bool {
	if r.redis == nil || limit <= 0 {
		return true
	}
	key := fmt.Sprintf("rate_limit:%s:%s", scope, ip)

	pipe := r.redis.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Debug("rate limit check failed, allowing request", zap.Error(err))
		return true
	}
	return incr.Val() <= int64(limit)
}

// BlockIP adds the IP to the block list for the given duration.
func (r *RateLimiter) BlockIP(ctx context.Context, ip, reason string, duration time.Duration) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Set(ctx, fmt.Sprintf("blocked_ip:%s", ip), reason, duration).Err()
}

func (r *RateLimiter) UnblockIP(ctx context.Context, ip string) error {
	if r.redis == nil {
		return nil
	}
	return r.redis.Del(ctx, fmt.Sprintf("blocked_ip:%s", ip)).Err()
}

// IsBlocked returns whether the IP is on the block list, and the reason.
func (r *RateLimiter) IsBlocked(ctx context.Context, ip string) (bool, string) {
	if r.redis == nil {
		return false, ""
	}
	reason, err := r.redis.Get(ctx, fmt.Sprintf("blocked_ip:%s", ip)).Result()
	if err != nil {
		return false, ""
	}
	return true, reason
}
