package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache stores fetched page content by URL.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// LRUCache is an in-process cache with a size bound and TTL.
type LRUCache struct {
	lru *expirable.LRU[string, string]
}

// NewLRUCache creates a cache holding up to size pages for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key, value string) {
	c.lru.Add(key, value)
}

// Len returns the number of cached pages.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares fetched pages through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache wraps client; keys are namespaced under "recipebox:page:".
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, prefix: "recipebox:page:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Page cache read failed", "error", err)
		}
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		slog.Warn("Page cache write failed", "error", err)
	}
}
