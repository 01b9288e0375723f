package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/coachpulse/internal/adapter/metrics"
	"github.com/pscheid92/coachpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const entitlementCacheTTL = 1 * time.Hour

// EntitlementLoader is the authoritative source behind the cache.
type EntitlementLoader interface {
	GetEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error)
}

// EntitlementCache resolves entitlements through three layers: an in-process
// map, Redis, and finally Postgres. Concurrent misses for one user collapse
// into a single load.
type EntitlementCache struct {
	rdb     goredis.Cmdable
	loader  EntitlementLoader
	mem     *memoryCache
	group   singleflight.Group
	metrics *metrics.CacheMetrics
}

// NewEntitlementCache builds the cache. rdb may be nil, which disables the Redis layer.
func NewEntitlementCache(rdb goredis.Cmdable, loader EntitlementLoader, memTTL time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *EntitlementCache {
	return &EntitlementCache{
		rdb:     rdb,
		loader:  loader,
		mem:     newMemoryCache(memTTL, clock),
		metrics: m,
	}
}

// StartEvictionTimer runs a periodic goroutine that evicts expired in-memory cache entries.
// Returns a stop function that should be deferred.
func (c *EntitlementCache) StartEvictionTimer(interval time.Duration) func() {
	ticker := c.mem.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := c.mem.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired entitlement cache entries", "count", evicted, "remaining", c.mem.size())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

func (c *EntitlementCache) GetEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	key := userID.String()

	// Layer 1: in-memory cache
	if e, ok := c.mem.get(key); ok {
		c.hit("memory")
		return &e, nil
	}
	c.miss("memory")

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Layer 2: Redis cache
		if e, ok := c.getCached(ctx, userID); ok {
			c.hit("redis")
			c.mem.set(key, e)
			return e, nil
		}
		c.miss("redis")

		// Layer 3: PostgreSQL
		e, err := c.loader.GetEntitlement(ctx, userID)
		if err != nil {
			return domain.Entitlement{}, err
		}
		c.mem.set(key, *e)
		c.writeCache(ctx, *e)
		return *e, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("entitlement lookup failed: %w", err)
	}

	e := v.(domain.Entitlement)
	return &e, nil
}

// InvalidateEntitlement evicts the entry locally and in Redis, then notifies
// other instances so they drop their in-memory copy.
func (c *EntitlementCache) InvalidateEntitlement(ctx context.Context, userID uuid.UUID) error {
	c.evictLocal(userID.String())
	if c.metrics != nil {
		c.metrics.Invalidations.Inc()
	}

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, entitlementCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate entitlement cache: %w", err)
	}
	if err := c.rdb.Publish(ctx, invalidationChannel, userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to publish entitlement invalidation: %w", err)
	}
	return nil
}

func (c *EntitlementCache) evictLocal(key string) {
	c.mem.invalidate(key)
}

func (c *EntitlementCache) writeCache(ctx context.Context, e domain.Entitlement) {
	if c.rdb == nil {
		return
	}

	encoded, err := json.Marshal(e)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal entitlement for Redis cache", "user_id", e.UserID, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, entitlementCacheKey(e.UserID), encoded, entitlementCacheTTL).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis entitlement cache", "user_id", e.UserID, "error", err)
	}
}

func (c *EntitlementCache) getCached(ctx context.Context, userID uuid.UUID) (domain.Entitlement, bool) {
	if c.rdb == nil {
		return domain.Entitlement{}, false
	}

	data, err := c.rdb.Get(ctx, entitlementCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis entitlement cache GET failed", "user_id", userID, "error", err)
		}
		return domain.Entitlement{}, false
	}

	var e domain.Entitlement
	if err := json.Unmarshal(data, &e); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached entitlement", "user_id", userID, "error", err)
		return domain.Entitlement{}, false
	}
	return e, true
}

func (c *EntitlementCache) hit(layer string) {
	if c.metrics != nil {
		c.metrics.Hits.WithLabelValues(layer).Inc()
	}
}

func (c *EntitlementCache) miss(layer string) {
	if c.metrics != nil {
		c.metrics.Misses.WithLabelValues(layer).Inc()
	}
}

func entitlementCacheKey(userID uuid.UUID) string {
	return "entitlement:" + userID.String()
}

// memoryCache is an in-memory L1 cache with TTL-based expiry.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	value     domain.Entitlement
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(key string) (domain.Entitlement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		return domain.Entitlement{}, false
	}
	return entry.value, true
}

func (c *memoryCache) set(key string, value domain.Entitlement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryCacheEntry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

func (c *memoryCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
