package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockChatServiceDefaults(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	// Test default behavior - should not error
	err := mock.UpsertUser(ctx, "user123", "testuser")
	assert.NoError(t, err)
	assert.True(t, mock.AssertCalled("UpsertUser"))

	// Test call tracking
	calls := mock.GetCallsForMethod("UpsertUser")
	assert.Len(t, calls, 1)
	assert.Equal(t, "user123", calls[0].Args[0])
	assert.Equal(t, "testuser", calls[0].Args[1])
}

func TestMockChatServiceCreateToken(t *testing.T) {
	mock := NewMockChatService()

	expiration := time.Now().Add(time.Hour)
	token, err := mock.CreateToken("user123", expiration)

	assert.NoError(t, err)
	assert.Contains(t, token, "mock_token_user123")
	assert.True(t, mock.AssertCalled("CreateToken"))
}

func TestMockChatServiceCustomFunction(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	// Configure custom behavior
	mock.UpsertUserFunc = func(ctx context.Context, userID, username string) error {
		if userID == "blocked" {
			return errors.New("user blocked")
		}
		return nil
	}

	// Test blocked user
	err := mock.UpsertUser(ctx, "blocked", "blockeduser")
	assert.Error(t, err)
	assert.Equal(t, "user blocked", err.Error())

	// Test normal user
	err = mock.UpsertUser(ctx, "normal", "normaluser")
	assert.NoError(t, err)
}

func TestMockChatServiceDefaultError(t *testing.T) {
	mock := NewMockChatService()
	mock.DefaultError = errors.New("default error")
	ctx := context.Background()

	err := mock.UpsertUser(ctx, "user123", "testuser")
	assert.Error(t, err)
	assert.Equal(t, "default error", err.Error())

	_, err = mock.SendMessage(ctx, "channel1", &OutgoingMessage{Text: "hi"})
	assert.Error(t, err)
}

func TestMockChatServiceReset(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	mock.UpsertUser(ctx, "user1", "name1")
	mock.UpsertUser(ctx, "user2", "name2")
	assert.Len(t, mock.GetCalls(), 2)

	mock.Reset()
	assert.Len(t, mock.GetCalls(), 0)
	assert.True(t, mock.AssertNotCalled("UpsertUser"))
}

func TestMockChatServiceCallCount(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	mock.UpsertUser(ctx, "user1", "name1")
	mock.UpsertUser(ctx, "user2", "name2")
	mock.UpsertUser(ctx, "user3", "name3")

	assert.True(t, mock.AssertCallCount("UpsertUser", 3))
	assert.False(t, mock.AssertCallCount("UpsertUser", 2))
}

func TestMockChatServiceSendMessage(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	msg := &OutgoingMessage{SenderID: "user123", Text: "hello"}
	id, err := mock.SendMessage(ctx, "channel1", msg)
	assert.NoError(t, err)
	assert.Contains(t, id, "mock_message_")

	calls := mock.GetCallsForMethod("SendMessage")
	assert.Len(t, calls, 1)
	assert.Equal(t, "channel1", calls[0].Args[0])
	assert.Equal(t, msg, calls[0].Args[1])
}

func TestMockChatServiceUpdateMessage(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	err := mock.UpdateMessage(ctx, "msg-7", &OutgoingMessage{Text: "edited"})
	assert.NoError(t, err)
	assert.True(t, mock.AssertCalled("UpdateMessage"))

	calls := mock.GetCallsForMethod("UpdateMessage")
	assert.Equal(t, "msg-7", calls[0].Args[0])
}

func TestMockChatServiceQueryUsersByName(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	// Default returns empty
	users, err := mock.QueryUsersByName(ctx, "am", 5)
	assert.NoError(t, err)
	assert.Empty(t, users)

	// Configure autocomplete results
	mock.QueryUsersByNameFunc = func(ctx context.Context, nameToken string, limit int) ([]*ChatUser, error) {
		return []*ChatUser{
			{ID: "u-amy", Name: "amy"},
			{ID: "u-amber", Name: "amber"},
		}, nil
	}

	users, err = mock.QueryUsersByName(ctx, "am", 5)
	assert.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "u-amy", users[0].ID)
}

func TestMockChatServiceCreateDirectChannel(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	channelID, err := mock.CreateDirectChannel(ctx, "user1", "user2")
	assert.NoError(t, err)
	assert.Contains(t, channelID, "mock_channel_user1")
	assert.True(t, mock.AssertCalled("CreateDirectChannel"))
}

func TestMockChatServiceConcurrency(t *testing.T) {
	mock := NewMockChatService()
	ctx := context.Background()

	// Test that the mock is thread-safe
	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			mock.UpsertUser(ctx, string(rune('a'+id)), "user")
			mock.GetCalls()
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10, len(mock.GetCalls()))
}
