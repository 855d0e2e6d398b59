package stream

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockChatService is a mock implementation of ChatServiceInterface for
// testing. It allows configuring responses per method and tracks all calls
// for assertions.
type MockChatService struct {
	mu sync.Mutex

	// Call tracking
	Calls []MockCall

	// Configurable function overrides - set these to customize behavior
	UpsertUserFunc          func(ctx context.Context, userID, username string) error
	CreateTokenFunc         func(userID string, expiration time.Time) (string, error)
	QueryUsersByNameFunc    func(ctx context.Context, nameToken string, limit int) ([]*ChatUser, error)
	CreateDirectChannelFunc func(ctx context.Context, creatorID string, memberIDs ...string) (string, error)
	SendMessageFunc         func(ctx context.Context, channelID string, msg *OutgoingMessage) (string, error)
	UpdateMessageFunc       func(ctx context.Context, messageID string, msg *OutgoingMessage) error

	// Default responses for simple cases
	DefaultError error
}

// Ensure MockChatService implements ChatServiceInterface
var _ ChatServiceInterface = (*MockChatService)(nil)

// NewMockChatService creates a new mock client with sensible defaults
func NewMockChatService() *MockChatService {
	return &MockChatService{
		Calls: make([]MockCall, 0),
	}
}

// recordCall records a method call for later assertion
func (m *MockChatService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCalls returns all recorded calls (thread-safe)
func (m *MockChatService) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// GetCallsForMethod returns calls for a specific method
func (m *MockChatService) GetCallsForMethod(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []MockCall
	for _, call := range m.Calls {
		if call.Method == method {
			result = append(result, call)
		}
	}
	return result
}

// Reset clears all recorded calls
func (m *MockChatService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = make([]MockCall, 0)
}

// AssertCalled checks if a method was called at least once
func (m *MockChatService) AssertCalled(method string) bool {
	return len(m.GetCallsForMethod(method)) > 0
}

// AssertNotCalled checks if a method was never called
func (m *MockChatService) AssertNotCalled(method string) bool {
	return len(m.GetCallsForMethod(method)) == 0
}

// AssertCallCount checks if a method was called exactly n times
func (m *MockChatService) AssertCallCount(method string, count int) bool {
	return len(m.GetCallsForMethod(method)) == count
}

// ============================================================================
// User operations
// ============================================================================

func (m *MockChatService) UpsertUser(ctx context.Context, userID, username string) error {
	m.recordCall("UpsertUser", userID, username)
	if m.UpsertUserFunc != nil {
		return m.UpsertUserFunc(ctx, userID, username)
	}
	return m.DefaultError
}

func (m *MockChatService) CreateToken(userID string, expiration time.Time) (string, error) {
	m.recordCall("CreateToken", userID, expiration)
	if m.CreateTokenFunc != nil {
		return m.CreateTokenFunc(userID, expiration)
	}
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return fmt.Sprintf("mock_token_%s_%d", userID, expiration.Unix()), nil
}

func (m *MockChatService) QueryUsersByName(ctx context.Context, nameToken string, limit int) ([]*ChatUser, error) {
	m.recordCall("QueryUsersByName", nameToken, limit)
	if m.QueryUsersByNameFunc != nil {
		return m.QueryUsersByNameFunc(ctx, nameToken, limit)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return []*ChatUser{}, nil
}

// ============================================================================
// Channel operations
// ============================================================================

func (m *MockChatService) CreateDirectChannel(ctx context.Context, creatorID string, memberIDs ...string) (string, error) {
	m.recordCall("CreateDirectChannel", creatorID, memberIDs)
	if m.CreateDirectChannelFunc != nil {
		return m.CreateDirectChannelFunc(ctx, creatorID, memberIDs...)
	}
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return fmt.Sprintf("mock_channel_%s", creatorID), nil
}

// ============================================================================
// Message operations
// ============================================================================

func (m *MockChatService) SendMessage(ctx context.Context, channelID string, msg *OutgoingMessage) (string, error) {
	m.recordCall("SendMessage", channelID, msg)
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, channelID, msg)
	}
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return fmt.Sprintf("mock_message_%d", time.Now().UnixNano()), nil
}

func (m *MockChatService) UpdateMessage(ctx context.Context, messageID string, msg *OutgoingMessage) error {
	m.recordCall("UpdateMessage", messageID, msg)
	if m.UpdateMessageFunc != nil {
		return m.UpdateMessageFunc(ctx, messageID, msg)
	}
	return m.DefaultError
}
