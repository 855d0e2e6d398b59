package stream

import (
	"context"
	"time"
)

// ChatServiceInterface defines the interface for Stream.io Chat operations.
// This enables mocking for unit tests without requiring a real getstream.io
// connection.
//
// The interface covers the methods the composer surface needs:
// - Message operations (send, update)
// - Channel operations (direct channels)
// - User operations (upsert, tokens, mention autocomplete)
type ChatServiceInterface interface {
	// User operations
	UpsertUser(ctx context.Context, userID, username string) error
	CreateToken(userID string, expiration time.Time) (string, error)
	QueryUsersByName(ctx context.Context, nameToken string, limit int) ([]*ChatUser, error)

	// Channel operations
	CreateDirectChannel(ctx context.Context, creatorID string, memberIDs ...string) (string, error)

	// Message operations
	SendMessage(ctx context.Context, channelID string, msg *OutgoingMessage) (string, error)
	UpdateMessage(ctx context.Context, messageID string, msg *OutgoingMessage) error
}

// Ensure Client implements ChatServiceInterface
var _ ChatServiceInterface = (*Client)(nil)
