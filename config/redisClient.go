package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client for addr, or nil when addr is empty so that
// Redis backed limits can be switched off in development.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		slog.Warn("REDIS_ADDRESS not set, rate limits disabled")
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)
	return client, nil
}
