package router

import (
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/config"
	"github.com/NomadCrew/nomad-crew-ledger/handlers"
	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config        *config.Config
	LedgerHandler *handlers.LedgerHandler
	HealthHandler *handlers.HealthHandler
	// RateLimiter guards write routes when set and the configured limit is positive.
	RateLimiter middleware.RateLimiter
}

func writeGuard(deps Dependencies) gin.HandlerFunc {
	limit := deps.Config.Ledger.WriteRateLimitPerMinute
	if deps.RateLimiter == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.WriteRateLimiter(deps.RateLimiter, limit, time.Minute)
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	// Forwarding headers count only when the peer is a configured proxy, so
	// the write limiter keys on an address the client cannot choose.
	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		logger.Named("router").Errorw("Invalid trusted proxies, trusting none",
			"proxies", deps.Config.Server.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.UserIdentity())

	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guard := writeGuard(deps)

	v1 := r.Group("/v1")
	{
		v1.POST("/splits/preview", deps.LedgerHandler.PreviewSplitHandler)

		groupRoutes := v1.Group("/groups/:groupId")
		{
			groupRoutes.GET("/balances", deps.LedgerHandler.GetBalancesHandler)
			groupRoutes.GET("/simplified-debts", deps.LedgerHandler.GetSimplifiedDebtsHandler)
			groupRoutes.GET("/explanation", deps.LedgerHandler.GetExplanationHandler)
			groupRoutes.GET("/summary", deps.LedgerHandler.GetSummaryHandler)

			groupRoutes.POST("/participants", deps.LedgerHandler.UpsertParticipantHandler)
			groupRoutes.POST("/expenses", guard, deps.LedgerHandler.CreateExpenseHandler)

			settlementRoutes := groupRoutes.Group("/settlements")
			{
				settlementRoutes.POST("", guard, deps.LedgerHandler.RecordSettlementHandler)
				settlementRoutes.POST("/:settlementId/confirm", deps.LedgerHandler.ConfirmSettlementHandler)
				settlementRoutes.POST("/:settlementId/reject", deps.LedgerHandler.RejectSettlementHandler)
			}
		}
	}

	return r
}
