package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/voxchat/backend/internal/cache"
	"github.com/voxchat/backend/internal/logger"
	"go.uber.org/zap"
)

// CacheManager is a read-through cache over Redis. Every method tolerates a
// nil manager or a missing Redis so callers never branch on availability.
type CacheManager struct {
	client *cache.RedisClient
}

// NewCacheManager creates a cache manager. client may be nil.
func NewCacheManager(client *cache.RedisClient) *CacheManager {
	return &CacheManager{client: client}
}

// CacheKey joins a prefix and its parts into a colon-delimited key
func CacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// HashToken hashes a value for use inside a cache key, keeping arbitrary
// user input (search phrases, bearer tokens) out of Redis key space.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GetCached looks a key up, reporting (value, found, error). A cold cache
// and an absent Redis both read as a miss.
func (cm *CacheManager) GetCached(ctx context.Context, key string) (string, bool, error) {
	if cm == nil || cm.client == nil {
		return "", false, nil
	}

	val, err := cm.client.Get(ctx, key)
	if err != nil {
		if cache.IsMiss(err) {
			return "", false, nil
		}
		logger.Log.Debug("Cache retrieval failed", zap.String("key", key), zap.Error(err))
		return "", false, err
	}
	return val, true, nil
}

// SetCached stores a value with a TTL. Write failures are logged, not
// surfaced: the cached path is an optimization, never a dependency.
func (cm *CacheManager) SetCached(ctx context.Context, key string, value string, ttl time.Duration) error {
	if cm == nil || cm.client == nil {
		return nil
	}

	if err := cm.client.SetEx(ctx, key, value, ttl); err != nil {
		logger.Log.Debug("Cache write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateCache drops one or more keys
func (cm *CacheManager) InvalidateCache(ctx context.Context, keys ...string) error {
	if cm == nil || cm.client == nil || len(keys) == 0 {
		return nil
	}

	if err := cm.client.Del(ctx, keys...); err != nil {
		logger.Log.Debug("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	return nil
}

// InvalidatePrefix drops every key under a prefix. KEYS is O(keyspace), so
// this is reserved for admin-triggered flushes, not request paths.
func (cm *CacheManager) InvalidatePrefix(ctx context.Context, prefix string) error {
	if cm == nil || cm.client == nil {
		return nil
	}

	keys, err := cm.client.Keys(ctx, prefix+":*")
	if err != nil {
		logger.Log.Debug("Cache prefix scan failed", zap.String("prefix", prefix), zap.Error(err))
		return err
	}
	return cm.InvalidateCache(ctx, keys...)
}
