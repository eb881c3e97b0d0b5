package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "scrimhub:rl:"

// RedisStore counts hits in Redis fixed windows so limits hold across
// instances. INCR and EXPIRE run in one pipeline; the key expires with the
// window, so abandoned keys clean themselves up.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Take(ctx context.Context, key string, b Bucket) (bool, int, time.Duration, error) {
	fullKey := redisKeyPrefix + key

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	// NX so the window anchors at the first hit instead of sliding.
	pipe.ExpireNX(ctx, fullKey, b.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	count := incr.Val()
	if count > int64(b.Limit) {
		retryAfter, err := r.client.PTTL(ctx, fullKey).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = b.Window
		}
		return false, 0, retryAfter, nil
	}
	return true, b.Limit - int(count), 0, nil
}

var _ Store = (*RedisStore)(nil)
