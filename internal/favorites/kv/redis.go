package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store over plain redis string keys.
type Redis struct {
	client *redis.Client
	prefix string
}

var _ Store = (*Redis)(nil)

func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "toolhub:kv"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close is a no-op; the redis client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}
