package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"speedguard/config"
)

// Live channels bridged to the query API's websocket.
const (
	LiveReadingsChannel = "speedguard:live"
	LiveAlertsChannel   = "speedguard:alerts"
)

// RedisStore publishes accepted readings and generated alerts to the live
// channels.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) PublishReading(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, LiveReadingsChannel, payload).Err()
}

func (r *RedisStore) PublishAlert(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, LiveAlertsChannel, payload).Err()
}
