package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown allows one action per key per window, tracked in Redis with
// SET NX EX. A nil Redis client disables it.
type Cooldown struct {
	Client *redis.Client
	Prefix string
	Window time.Duration
}

// Acquire claims the key for the window. When the key is already held it
// returns ok=false and how long until it frees up.
func (c *Cooldown) Acquire(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error) {
	if c == nil || c.Client == nil || c.Window <= 0 {
		return true, 0, nil
	}
	k := c.Prefix + ":" + key
	ok, err = c.Client.SetNX(ctx, k, 1, c.Window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown acquire: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := c.Client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown ttl: %w", err)
	}
	if ttl < 0 {
		ttl = c.Window
	}
	return false, ttl, nil
}

// Release frees the key early, e.g. when the guarded action failed.
func (c *Cooldown) Release(ctx context.Context, key string) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Del(ctx, c.Prefix+":"+key).Err()
}
