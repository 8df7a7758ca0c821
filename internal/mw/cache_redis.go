package mw

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisCachePrefix = "estate:http:"

// RedisCache shares cached responses between instances.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := r.rdb.Get(ctx, redisCachePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("redis cache get failed", "error", err)
		}
		return nil, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (r *RedisCache) Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, redisCachePrefix+key, raw, ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "error", err)
	}
}

// Flush deletes only this cache's keys.
func (r *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, redisCachePrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			pipe := r.rdb.Pipeline()
			for _, key := range keys {
				pipe.Del(ctx, key)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
