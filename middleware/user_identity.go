package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller identity established by the API gateway.
// Authentication itself happens upstream.
const UserIDHeader = "X-User-ID"

// UserIdentity copies UserIDHeader into the context under UserIDKey. It is
// only used for audit fields, so requests without it proceed.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader(UserIDHeader)); userID != "" {
			c.Set(UserIDKey, userID)
		}
		c.Next()
	}
}
