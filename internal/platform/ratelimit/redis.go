package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts hits per key in Redis with the window as TTL, so every
// instance behind a load balancer shares the same limit.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Allow(ctx context.Context, k string, window time.Duration) (bool, time.Duration, error) {
	rk := "rate_limit:" + k
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, 0, err
		}
		return true, 0, nil
	}
	ttl, err := r.client.TTL(ctx, rk).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// A previous Expire was lost; restore the window rather than blocking forever.
		if err := r.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, 0, err
		}
		ttl = window
	}
	return false, ttl, nil
}
