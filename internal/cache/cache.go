// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores answered queries for a bounded time so repeated
// questions skip the model call.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/sciqa/pkg/types"
)

// Cache is an answer cache keyed by Key.
type Cache interface {
	// Get returns the cached answer for key. A miss, an expired entry,
	// and a backend error all report false.
	Get(ctx context.Context, key string) (types.Answer, bool)

	// Set stores ans under key.
	Set(ctx context.Context, key string, ans types.Answer) error
}

// Key builds the cache key for q. Question and domain carry their byte
// length so that separators inside a field cannot make two queries collide.
func Key(q types.Query) string {
	return fmt.Sprintf("%d:%s|%d:%s|%s", len(q.Question), q.Question, len(q.Domain), q.Domain, q.Context)
}

// New builds the cache selected by cfg, or returns nil when caching is
// disabled. The logger reports backend failures that Get hides as misses.
func New(cfg types.CacheConfig, logger *zap.Logger) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "", types.CacheMemory:
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case types.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedis(client, cfg.TTL, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
