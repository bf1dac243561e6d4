package runtracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to REDIS_URL and checks the connection.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) LastSuccessfulRun(ctx context.Context, shopID string) (*time.Time, error) {
	val, err := s.client.Get(ctx, ShopKey(shopID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		// unreadable markers count as no previous run
		return nil, nil
	}
	return &t, nil
}

func (s *RedisStore) MarkSuccess(ctx context.Context, shopIDs []string, at time.Time) error {
	value := at.UTC().Format(time.RFC3339Nano)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys(shopIDs) {
			pipe.Set(ctx, key, value, Retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark run: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
