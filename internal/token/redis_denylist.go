package token

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisDenylistPrefix = "scrimhub:denylist:jti:"

// RedisDenylist stores revoked JTIs in Redis so revocation holds across
// instances. Keys expire with the token, so the set never grows past the
// live-token horizon. Errors are returned as-is; the token service fails
// closed on them.
type RedisDenylist struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisDenylist creates a Redis-backed denylist.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (r *RedisDenylist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, redisDenylistPrefix+jti, "1", ttl).Err()
}

func (r *RedisDenylist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, redisDenylistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ Denylist = (*RedisDenylist)(nil)
