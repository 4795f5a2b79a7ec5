package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"dispatchsim/internal/database"
	"dispatchsim/internal/logging"
	"dispatchsim/internal/models"
)

// cacheEntry is the cached (miles, minutes) pair for a rounded coordinate key.
type cacheEntry struct {
	Miles   float64 `json:"miles"`
	Minutes float64 `json:"minutes"`
}

// CachingOracle memoizes an underlying Oracle's results. Grounded on the
// teacher's nil-safe "skip Redis operations if the client is not
// available" convention (internal/observability/collector.go): when no
// Redis client is wired in, it falls back to an in-process map, and any
// Redis error during a lookup degrades to a direct Query rather than
// failing the call. Cache-only: correctness never depends on Redis.
type CachingOracle struct {
	underlying Oracle
	redis      *database.RedisClient
	ttl        time.Duration
	logger     *logging.Logger

	mu    sync.RWMutex
	local map[string]cacheEntry
}

// NewCachingOracle wraps underlying with an in-process cache. redis may be
// nil, in which case the cache is purely in-process.
func NewCachingOracle(underlying Oracle, redis *database.RedisClient, ttl time.Duration, logger *logging.Logger) *CachingOracle {
	return &CachingOracle{
		underlying: underlying,
		redis:      redis,
		ttl:        ttl,
		logger:     logger,
		local:      make(map[string]cacheEntry),
	}
}

// Query implements Oracle.
func (c *CachingOracle) Query(ctx context.Context, from, to models.Location) (float64, float64) {
	key := cacheKey(from, to)

	c.mu.RLock()
	entry, ok := c.local[key]
	c.mu.RUnlock()
	if ok {
		return entry.Miles, entry.Minutes
	}

	if c.redis != nil {
		var remote cacheEntry
		if err := c.redis.GetJSON(ctx, redisKey(key), &remote); err == nil {
			c.storeLocal(key, remote)
			return remote.Miles, remote.Minutes
		} else if !database.IsRedisConnectionError(err) && c.logger != nil {
			c.logger.WithComponent("distance_cache").Debug("redis cache miss", "error", err)
		}
	}

	miles, minutes := c.underlying.Query(ctx, from, to)
	entry = cacheEntry{Miles: miles, Minutes: minutes}
	c.storeLocal(key, entry)

	if c.redis != nil {
		if data, err := json.Marshal(entry); err == nil {
			_ = c.redis.Set(ctx, redisKey(key), data, c.ttl)
		}
	}

	return miles, minutes
}

func (c *CachingOracle) storeLocal(key string, entry cacheEntry) {
	c.mu.Lock()
	c.local[key] = entry
	c.mu.Unlock()
}

// cacheKey rounds coordinates to ~11m precision so nearby repeat queries
// (same pickup zone, slightly different float noise) still hit.
func cacheKey(from, to models.Location) string {
	round := func(v float64) float64 { return math.Round(v*1e4) / 1e4 }
	return fmt.Sprintf("%.4f,%.4f->%.4f,%.4f",
		round(from.Latitude), round(from.Longitude),
		round(to.Latitude), round(to.Longitude))
}

func redisKey(key string) string {
	return "distance:" + key
}
