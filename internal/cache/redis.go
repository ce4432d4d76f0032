package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Redis implements Store via rueidis.
type Redis struct {
	client rueidis.Client
}

var _ Store = (*Redis)(nil)

// Config holds connection parameters for a Redis cache backend.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a Redis-backed cache store.
func NewRedis(cfg Config) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Redis{client: client}, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Get retrieves a value by key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := r.client.B().Get().Key(key).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get: %w", err)
	}
	return data, nil
}

// Set stores a value with an expiration.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := r.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

// Delete removes a key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	cmd := r.client.B().Del().Key(key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() {
	r.client.Close()
}
