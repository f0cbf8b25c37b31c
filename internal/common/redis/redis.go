package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/logger"
)

// Client embeds the go-redis client so callers can use the full command set.
type Client struct {
	*goredis.Client
}

// Connect opens a Redis connection and verifies it with a ping.
func Connect(cfg config.RedisConfig, log *logger.Logger) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Infof("Connected to Redis %s:%s", cfg.Host, cfg.Port)
	return &Client{Client: client}, nil
}

// Nil is the sentinel returned by Get on a missing key.
var Nil = goredis.Nil
