package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fiscalia-labs/fiscalia-core/internal/core/domain"
	"github.com/fiscalia-labs/fiscalia-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResponseCache = (*ResponseCache)(nil)

const cachePrefix = "fiscalia:cache:"

// ResponseCache implements driven.ResponseCache on Redis.
//
// Keys are "fiscalia:cache:<session>:<hash>" where the hash is the
// content-addressed cache key over (query, context). Scoping the session
// into the key rather than the hash keeps the hash algorithm stable and
// makes per-session invalidation a prefix scan. Expiry is delegated to
// Redis TTLs.
type ResponseCache struct {
	client *redis.Client
}

// NewResponseCache creates a new Redis-backed response cache.
func NewResponseCache(client *redis.Client) *ResponseCache {
	return &ResponseCache{client: client}
}

func cacheRedisKey(sessionID, hash string) string {
	return cachePrefix + sessionID + ":" + hash
}

// Get returns the cached entry for the session's (query, context) pair,
// or nil on a miss.
func (c *ResponseCache) Get(ctx context.Context, sessionID, query string, context map[string]string) (*domain.CacheEntry, error) {
	hash := domain.CacheKey(query, context)

	data, err := c.client.Get(ctx, cacheRedisKey(sessionID, hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	entry := &domain.CacheEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, nil
	}
	return entry, nil
}

// Put upserts the answer under the pair's cache key with the given TTL.
func (c *ResponseCache) Put(ctx context.Context, sessionID, query string, context map[string]string, response string, metadata map[string]string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}

	hash := domain.CacheKey(query, context)
	now := time.Now()
	entry := &domain.CacheEntry{
		CacheKey:     hash,
		SessionID:    sessionID,
		ResponseText: response,
		Metadata:     metadata,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := c.client.Set(ctx, cacheRedisKey(sessionID, hash), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// InvalidateSession drops all cached answers for a session
func (c *ResponseCache) InvalidateSession(ctx context.Context, sessionID string) error {
	pattern := cachePrefix + sessionID + ":*"

	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return nil
}

// Ping checks the cache backend is healthy
func (c *ResponseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
