package middleware

import (
	"github.com/NomadCrew/nomad-crew-ledger/config"
	"github.com/gin-gonic/gin"
)

// SecurityHeadersMiddleware sets the response headers every JSON endpoint
// carries. HSTS is only sent in production.
func SecurityHeadersMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		// Balances and plans are per group and change on every write.
		c.Header("Cache-Control", "no-store")

		if cfg.IsProduction() {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
