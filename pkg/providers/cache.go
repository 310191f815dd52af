package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ResponseCache memoizes successful AI answers keyed by message text.
// Keys carry no conversation context, so the same message in a
// different conversation gets the same cached answer.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// CacheKey hashes the normalized message so arbitrary user text never
// becomes a storage key.
func CacheKey(message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	sum := sha256.Sum256([]byte(normalized))
	return "resp:" + hex.EncodeToString(sum[:])
}

// LRUCache is the in-process cache with per-entry TTL.
type LRUCache struct {
	lru *expirable.LRU[string, string]
}

func NewLRUCache(maxEntries int, ttl time.Duration) *LRUCache {
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LRUCache{lru: expirable.NewLRU[string, string](maxEntries, nil, ttl)}
}

func (c *LRUCache) Get(ctx context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(ctx context.Context, key, value string) {
	c.lru.Add(key, value)
}

// RedisCache shares cached answers between processes. Errors degrade to
// a miss; the chain just regenerates.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	_ = c.client.Set(ctx, key, value, c.ttl).Err()
}
