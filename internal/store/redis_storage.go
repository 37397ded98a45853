package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"signclient/internal/domain"
)

// Compile-time assertion that RedisStorage implements domain.Storage.
var _ domain.Storage = (*RedisStorage)(nil)

// RedisStorage keeps JSON values as redis strings without TTL; expiry is
// tracked by the expirer, not by redis.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects and pings the server.
func NewRedisStorage(ctx context.Context, cfg RedisConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &RedisStorage{client: client}, nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

// GetItem decodes the value at key into out.
func (s *RedisStorage) GetItem(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	return true, json.Unmarshal(data, out)
}

// SetItem stores value at key.
func (s *RedisStorage) SetItem(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (s *RedisStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStorage) Close() error { return s.client.Close() }
