package middleware

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-ledger/errors"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/gin-gonic/gin"
)

// RateLimiter counts a request against key within a fixed window.
type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// WriteRateLimiter caps ledger writes per group and client IP. The client IP
// comes from gin's ClientIP, which only honours forwarding headers from the
// engine's trusted proxies. Limiter failures let the request through so a
// Redis outage does not block writes.
func WriteRateLimiter(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	log := logger.GetLogger().Named("rate_limit")

	return func(c *gin.Context) {
		key := fmt.Sprintf("write:%s:%s", c.Param("groupId"), c.ClientIP())

		allowed, retryAfter, err := limiter.CheckLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warnw("Rate limit check failed, allowing request", "key", key, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit))

		if !allowed {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(retryAfter).Unix()))
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))

			_ = c.Error(apperrors.RateLimitExceeded("Too many ledger writes. Please try again later.", seconds))
			c.Abort()
			return
		}

		c.Next()
	}
}
