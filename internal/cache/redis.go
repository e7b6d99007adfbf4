package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New connects to redis. An empty address disables caching and returns
// a nil client, which the catalog service treats as a cache miss on
// every read.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}
