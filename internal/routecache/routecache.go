// Package routecache implements the per-user route cache (C8): a
// Redis-backed key-value store keyed by user id, storing the routes,
// substitution bookkeeping, and next-route-id counter described in
// spec.md §3. Writes are last-write-wins and always carry a fresh TTL.
package routecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tourloop/planner/internal/model"
)

// ErrNotFound is returned when no cache entry exists for a user.
var ErrNotFound = errors.New("routecache: no entry for user")

const keyPrefix = "user:"

// Cache is the per-user route cache.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// New builds a route cache. ttl is the entry lifetime renewed on every
// write (PlannerConfig.UserCacheTTL).
func New(redisClient *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, ttl: ttl}
}

func userKey(userID string) string {
	return keyPrefix + userID
}

// Get returns the cached entry for userID, or ErrNotFound on a miss.
func (c *Cache) Get(ctx context.Context, userID string) (*model.UserCacheEntry, error) {
	raw, err := c.redis.Get(ctx, userKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("routecache: get %s: %w", userID, err)
	}

	entry := &model.UserCacheEntry{}
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("routecache: decode %s: %w", userID, err)
	}
	return entry, nil
}

// Set overwrites the cache entry for userID with a fresh TTL
// (last-write-wins, spec.md §4.8).
func (c *Cache) Set(ctx context.Context, userID string, entry *model.UserCacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("routecache: encode %s: %w", userID, err)
	}
	if err := c.redis.Set(ctx, userKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("routecache: set %s: %w", userID, err)
	}
	return nil
}

// Delete removes the cache entry for userID.
func (c *Cache) Delete(ctx context.Context, userID string) error {
	if err := c.redis.Del(ctx, userKey(userID)).Err(); err != nil {
		return fmt.Errorf("routecache: delete %s: %w", userID, err)
	}
	return nil
}
