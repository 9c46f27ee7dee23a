package pkg

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/answersheet-service/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient returns nil without error when no REDIS_URL is configured.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return client, nil
}
