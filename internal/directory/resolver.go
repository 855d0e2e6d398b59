// Package directory resolves typed @mention tokens to chat users, backing
// the composer's mention autocomplete.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/cache"
	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/stream"
)

const (
	// DefaultLimit caps autocomplete results per lookup
	DefaultLimit = 10

	// cacheTTL keeps autocomplete results fresh enough while absorbing the
	// per-keystroke query storm.
	cacheTTL = 60 * time.Second
)

// Resolver looks up users by name prefix through the chat backend, with a
// short-lived Redis cache in front.
type Resolver struct {
	chat  stream.ChatServiceInterface
	redis *cache.RedisClient
	limit int
}

// NewResolver creates a resolver. redis may be nil to disable caching.
func NewResolver(chat stream.ChatServiceInterface, redis *cache.RedisClient) *Resolver {
	return &Resolver{chat: chat, redis: redis, limit: DefaultLimit}
}

// Resolve returns the users whose names match the typed token, as composer
// mention candidates.
func (r *Resolver) Resolve(ctx context.Context, nameToken string) ([]composer.MentionedUser, error) {
	nameToken = strings.ToLower(strings.TrimSpace(nameToken))
	if nameToken == "" {
		return nil, nil
	}

	if cached, ok := r.fromCache(ctx, nameToken); ok {
		return cached, nil
	}

	users, err := r.chat.QueryUsersByName(ctx, nameToken, r.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mentions for %q: %w", nameToken, err)
	}

	resolved := make([]composer.MentionedUser, 0, len(users))
	for _, u := range users {
		resolved = append(resolved, composer.MentionedUser{ID: u.ID, Name: u.Name})
	}

	r.toCache(ctx, nameToken, resolved)
	return resolved, nil
}

func cacheKey(nameToken string) string {
	return "directory:autocomplete:" + nameToken
}

func (r *Resolver) fromCache(ctx context.Context, nameToken string) ([]composer.MentionedUser, bool) {
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, cacheKey(nameToken))
	if err != nil {
		if !cache.IsMiss(err) {
			logger.Log.Debug("mention cache read failed", zap.String("token", nameToken), zap.Error(err))
		}
		return nil, false
	}
	var users []composer.MentionedUser
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, false
	}
	return users, true
}

func (r *Resolver) toCache(ctx context.Context, nameToken string, users []composer.MentionedUser) {
	if r.redis == nil {
		return
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return
	}
	if err := r.redis.SetEx(ctx, cacheKey(nameToken), raw, cacheTTL); err != nil {
		logger.Log.Debug("mention cache write failed", zap.String("token", nameToken), zap.Error(err))
	}
}
