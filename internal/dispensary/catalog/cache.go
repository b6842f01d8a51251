package catalog

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/clinic-dispensary/pkg/logger"
)

// Cache remembers NDC to drug id resolutions. Misses and backend errors both
// read as "not cached"; the repository stays the source of truth.
type Cache interface {
	Get(ctx context.Context, ndc string) (uint, bool)
	Set(ctx context.Context, ndc string, drugID uint)
}

// RedisCache stores resolutions in Redis
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis backed resolution cache
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, prefix: "dispensary:ndc:", ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, ndc string) (uint, bool) {
	val, err := c.client.Get(ctx, c.prefix+ndc).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx).Err(err).Str("ndc", ndc).Msg("Catalog cache read failed")
		}
		return 0, false
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (c *RedisCache) Set(ctx context.Context, ndc string, drugID uint) {
	if err := c.client.Set(ctx, c.prefix+ndc, strconv.FormatUint(uint64(drugID), 10), c.ttl).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("ndc", ndc).Msg("Catalog cache write failed")
	}
}

// MapCache is an unbounded in-process cache used when Redis is disabled
type MapCache struct {
	mu  sync.RWMutex
	ids map[string]uint
}

func NewMapCache() *MapCache {
	return &MapCache{ids: make(map[string]uint)}
}

func (c *MapCache) Get(_ context.Context, ndc string) (uint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[ndc]
	return id, ok
}

func (c *MapCache) Set(_ context.Context, ndc string, drugID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[ndc] = drugID
}
