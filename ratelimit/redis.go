package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window limiter on shared Redis counters: INCR per
// request, TTL set only on the first hit of each window. All nodes pointing
// at the same Redis share one budget per key.
type Redis struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter. Keys are namespaced under prefix
// ("rl" when empty).
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "rl"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow counts one request against the key's window.
func (r *Redis) Allow(ctx context.Context, key Key, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	k := r.redisKey(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: the first hit starts the window's clock.
	if count == 1 {
		if err := r.client.Expire(ctx, k, cfg.Window).Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	ttl, err := r.client.TTL(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl <= 0 {
		ttl = cfg.Window
	}

	res := Result{
		Allowed: count <= int64(cfg.MaxRequests),
		Limit:   cfg.MaxRequests,
		ResetAt: r.now().Add(ttl),
	}
	if remaining := int64(cfg.MaxRequests) - count; remaining > 0 {
		res.Remaining = int(remaining)
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}

// Reset deletes the key's counter.
func (r *Redis) Reset(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) redisKey(k Key) string {
	return r.prefix + ":" + k.Action + ":" + k.Identifier
}
