// Package events publishes ledger change notifications over Redis Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds configuration for RedisPublisher
type Config struct {
	PublishTimeout time.Duration
	ChannelPrefix  string
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		PublishTimeout: 2 * time.Second,
		ChannelPrefix:  "ledger:group:",
	}
}

type metrics struct {
	publishLatency prometheus.Histogram
	errorCount     *prometheus.CounterVec
	eventCount     *prometheus.CounterVec
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			publishLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "ledger_event_publish_duration_seconds",
				Help:    "Time taken to publish ledger events",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			}),
			errorCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_event_errors_total",
				Help: "Total number of ledger event publish errors by stage",
			}, []string{"stage"}),
			eventCount: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_events_total",
				Help: "Total number of published ledger events by type",
			}, []string{"type"}),
		}
	})
	return metricsInstance
}

// RedisPublisher implements types.EventPublisher using Redis Pub/Sub.
type RedisPublisher struct {
	rdb     redis.Cmdable
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
}

func NewRedisPublisher(rdb redis.Cmdable, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}

	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(),
		config:  config,
	}
}

// Channel returns the Pub/Sub channel carrying a group's events.
func (p *RedisPublisher) Channel(groupID string) string {
	return p.config.ChannelPrefix + groupID
}

func (p *RedisPublisher) Publish(ctx context.Context, groupID string, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	if event.GroupID == "" {
		event.GroupID = groupID
	}
	if err := event.Validate(); err != nil {
		p.metrics.errorCount.WithLabelValues("validation").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Version == 0 {
		event.Version = 1
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("marshal").Inc()
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.Channel(groupID), data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues(string(event.Type)).Inc()
	p.log.Debugw("Published ledger event", "groupID", groupID, "type", event.Type, "eventID", event.ID)
	return nil
}
