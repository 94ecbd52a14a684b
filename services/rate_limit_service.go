package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitService counts requests per key in fixed Redis windows.
type RateLimitService struct {
	redis     redis.Cmdable
	keyPrefix string
}

func NewRateLimitService(client redis.Cmdable) *RateLimitService {
	return &RateLimitService{
		redis:     client,
		keyPrefix: "ledger:ratelimit:",
	}
}

// CheckLimit records one request against key. It reports whether the request
// is within limit and, when it is not, how long until the window resets.
// The window starts with the first request; later requests do not extend it.
func (s *RateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	rKey := s.keyPrefix + key

	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, rKey)
	pipe.ExpireNX(ctx, rKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(limit) {
		return true, 0, nil
	}

	ttl, err := s.redis.TTL(ctx, rKey).Result()
	if err != nil || ttl <= 0 {
		return false, window, nil
	}
	return false, ttl, nil
}
