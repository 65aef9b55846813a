package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const snapshotKeyPrefix = "schedule:snapshot:"

// ErrCacheMiss is returned by SnapshotCache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// SnapshotCache stores raw upstream documents.
type SnapshotCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisSnapshotCache keeps upstream documents in Redis.
type RedisSnapshotCache struct {
	client *redis.Client
}

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

// OpenRedis connects to addr and pings it with a short timeout.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisSnapshotCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *RedisSnapshotCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Ready pings Redis.
func (c *RedisSnapshotCache) Ready(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
