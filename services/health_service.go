package services

import (
	"context"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DatabasePinger is satisfied by *pgxpool.Pool and pgxmock pools.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

const defaultDBPingAttempts = 3

type HealthService struct {
	db           DatabasePinger
	redisClient  redis.Cmdable
	version      string
	log          *zap.SugaredLogger
	startTime    time.Time
	pingAttempts int
	retryDelay   time.Duration
}

// NewHealthService builds a health checker. redisClient may be nil when the
// balance cache is disabled; Redis is then left out of the report.
func NewHealthService(db DatabasePinger, redisClient redis.Cmdable, version string) *HealthService {
	return &HealthService{
		db:           db,
		redisClient:  redisClient,
		version:      version,
		log:          logger.Named("health"),
		startTime:    time.Now(),
		pingAttempts: defaultDBPingAttempts,
		retryDelay:   200 * time.Millisecond,
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	dbStatus := h.checkDatabase(ctx)
	components[types.HealthComponentDatabase] = dbStatus
	overallStatus = overallStatus.Worse(dbStatus.Status)

	if h.redisClient != nil {
		redisStatus := h.checkRedis(ctx)
		components[types.HealthComponentRedis] = redisStatus
		overallStatus = overallStatus.Worse(redisStatus.Status)
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkDatabase(ctx context.Context) types.HealthComponent {
	var err error
	for attempt := 1; attempt <= h.pingAttempts; attempt++ {
		if err = h.db.Ping(ctx); err == nil {
			if attempt > 1 {
				return types.HealthComponent{
					Status:  types.HealthStatusUp,
					Details: "Database reachable after retry",
				}
			}
			return types.HealthComponent{Status: types.HealthStatusUp}
		}
		h.log.Warnw("Database ping failed", "attempt", attempt, "error", err)
		if attempt < h.pingAttempts && h.retryDelay > 0 {
			select {
			case <-ctx.Done():
				attempt = h.pingAttempts
			case <-time.After(h.retryDelay):
			}
		}
	}

	h.log.Errorw("Database health check failed", "error", err)
	return types.HealthComponent{
		Status:  types.HealthStatusDown,
		Details: "Database connection failed",
	}
}

// checkRedis reports Redis as degraded rather than down: balances are
// recomputed from the database when the cache is unreachable.
func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Redis connection failed",
		}
	}

	return types.HealthComponent{
		Status: types.HealthStatusUp,
	}
}
