// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pdiddy/sciqa/pkg/types"
)

// keyPrefix namespaces answer keys in a shared Redis.
const keyPrefix = "sciqa:answer:"

// Redis stores answers as JSON strings with a TTL.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis returns a Redis cache over client. A non-positive ttl uses one
// hour; a nil logger discards backend errors.
func NewRedis(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get implements Cache. Only redis.Nil is a plain miss; connection
// failures and undecodable values are logged before reporting false.
func (r *Redis) Get(ctx context.Context, key string) (types.Answer, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return types.Answer{}, false
	}
	if err != nil {
		r.logger.Warn("cache_lookup_failed", zap.String("backend", "redis"), zap.Error(err))
		return types.Answer{}, false
	}
	var ans types.Answer
	if err := json.Unmarshal([]byte(val), &ans); err != nil {
		r.logger.Warn("cache_decode_failed", zap.String("backend", "redis"), zap.Error(err))
		return types.Answer{}, false
	}
	return ans, true
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, ans types.Answer) error {
	data, err := json.Marshal(ans)
	if err != nil {
		return fmt.Errorf("marshaling answer: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("caching answer: %w", err)
	}
	return nil
}
