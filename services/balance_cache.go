package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/NomadCrew/nomad-crew-ledger/logger"
	"github.com/NomadCrew/nomad-crew-ledger/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	balanceKeyPrefix    = "ledger:balances:"
	generationKeyPrefix = "ledger:balances:gen:"
)

// setIfGeneration stores ARGV[2] under KEYS[1] with a PX of ARGV[3] only while
// the generation counter in KEYS[2] still equals ARGV[1].
const setIfGeneration = `
if (redis.call('GET', KEYS[2]) or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`

// BalanceCache keeps computed group balances in Redis. Entries expire after
// the configured TTL. Every invalidation bumps a per-group generation and Set
// only writes under the generation read before the balances were computed,
// so a hit is never staler than the last write.
type BalanceCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *zap.SugaredLogger
}

// NewBalanceCache creates a cache on client with the given TTL.
func NewBalanceCache(client redis.Cmdable, ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		client: client,
		ttl:    ttl,
		log:    logger.Named("ledger.cache"),
	}
}

func balanceKey(groupID string) string {
	return balanceKeyPrefix + groupID
}

func generationKey(groupID string) string {
	return generationKeyPrefix + groupID
}

// Get returns the cached balances for groupID. The boolean is false on a miss.
func (c *BalanceCache) Get(ctx context.Context, groupID string) (types.Balances, bool, error) {
	raw, err := c.client.Get(ctx, balanceKey(groupID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached balances: %w", err)
	}

	var balances types.Balances
	if err := json.Unmarshal([]byte(raw), &balances); err != nil {
		c.log.Warnw("Discarding undecodable cached balances", "groupID", groupID, "error", err)
		return nil, false, nil
	}
	if balances == nil {
		balances = types.Balances{}
	}
	return balances, true, nil
}

// Generation returns the group's invalidation counter. Read it before loading
// the records the balances are computed from and pass it to Set.
func (c *BalanceCache) Generation(ctx context.Context, groupID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(groupID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

// Set stores balances for groupID unless the group was invalidated after
// generation was read. The boolean reports whether the entry was written.
func (c *BalanceCache) Set(ctx context.Context, groupID string, generation int64, balances types.Balances) (bool, error) {
	data, err := json.Marshal(balances)
	if err != nil {
		return false, fmt.Errorf("failed to encode balances: %w", err)
	}
	stored, err := c.client.Eval(ctx, setIfGeneration,
		[]string{balanceKey(groupID), generationKey(groupID)},
		strconv.FormatInt(generation, 10), string(data), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache balances: %w", err)
	}
	return stored == 1, nil
}

// Invalidate drops the cached balances for groupID and bumps its generation
// so writes computed before this call are refused.
func (c *BalanceCache) Invalidate(ctx context.Context, groupID string) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, generationKey(groupID))
	pipe.Del(ctx, balanceKey(groupID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cached balances: %w", err)
	}
	c.log.Debugw("Balance cache invalidated", "groupID", groupID)
	return nil
}
