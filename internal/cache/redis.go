// Package cache owns the shared Redis connection. Drafts, autocomplete
// results, GIF lookups and rate limit counters all live in the same instance
// under distinct key prefixes.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

// RedisClient wraps redis.Client with the subset of commands the backend
// uses, so call sites never touch go-redis result types directly.
type RedisClient struct {
	client *redis.Client
}

var globalRedis *RedisClient

// NewRedisClient connects with pooling and stores the client as the package
// singleton. Empty host and port fall back to localhost:6379.
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:         host + ":" + port,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.Error("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	rc := &RedisClient{client: client}
	globalRedis = rc

	logger.Log.Info("✅ Redis client connected successfully",
		zap.String("address", host+":"+port),
	)
	return rc, nil
}

// GetRedisClient returns the singleton, nil when Redis was never configured
func GetRedisClient() *RedisClient {
	return globalRedis
}

// Close shuts the connection pool down
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// IsMiss reports whether the error from Get signals an absent key
func IsMiss(err error) bool {
	return err == redis.Nil
}

// Get retrieves a string value; IsMiss distinguishes absent keys from errors
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return rc.client.Get(ctx, key).Result()
}

// SetEx stores a value with an expiry
func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// Del deletes one or more keys
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return rc.client.Del(ctx, keys...).Err()
}

// Incr increments a counter, creating it at 1
func (rc *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return rc.client.Incr(ctx, key).Result()
}

// Expire sets an expiry on an existing key
func (rc *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return rc.client.Expire(ctx, key, ttl).Err()
}

// Keys lists keys matching a glob pattern. O(keyspace); admin paths only.
func (rc *RedisClient) Keys(ctx context.Context, pattern string) ([]string, error) {
	return rc.client.Keys(ctx, pattern).Result()
}

// Ping checks liveness
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}
