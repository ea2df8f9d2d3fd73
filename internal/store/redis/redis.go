package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gianix81/payAnalyst/internal/store"
)

const keyPrefix = "payanalyst:cache:"

// Repository is a Port backed by Redis string keys.
type Repository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRepository returns a Port over client. A zero ttl keeps values forever.
func NewRepository(client *goredis.Client, ttl time.Duration) *Repository {
	return &Repository{client: client, ttl: ttl}
}

func (r *Repository) redisKey(key string) string {
	return keyPrefix + key
}

func (r *Repository) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.redisKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache value: %w", err)
	}
	return data, nil
}

func (r *Repository) Save(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.redisKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache value: %w", err)
	}
	return nil
}

func (r *Repository) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache value: %w", err)
	}
	return nil
}

// RemoveAll deletes several keys in one pipeline.
func (r *Repository) RemoveAll(ctx context.Context, keys ...string) error {
	pipe := r.client.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, r.redisKey(k))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete cache values: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
