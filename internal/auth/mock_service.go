package auth

import (
	"sync"
	"time"

	"github.com/voxchat/backend/internal/models"
)

// MockCall records one method invocation for assertions
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is a configurable AuthServiceInterface for tests. With no
// overrides it issues deterministic tokens and resolves tokens through Users.
type MockAuthService struct {
	mu    sync.Mutex
	Calls []MockCall

	IssueTokenFunc    func(user *models.User) (*AuthResponse, error)
	ValidateTokenFunc func(tokenString string) (*models.User, error)

	// DefaultError, when set, fails every call that has no override
	DefaultError error

	// Users maps a bearer token to the user it authenticates
	Users map[string]*models.User
}

var _ AuthServiceInterface = (*MockAuthService)(nil)

// NewMockAuthService creates an empty mock
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{
		Users: make(map[string]*models.User),
	}
}

func (m *MockAuthService) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCallsForMethod returns the recorded calls to one method
func (m *MockAuthService) GetCallsForMethod(method string) []MockCall {
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

// AssertCalled reports whether a method was called at least once
func (m *MockAuthService) AssertCalled(method string) bool {
	return len(m.GetCallsForMethod(method)) > 0
}

// IssueToken implements AuthServiceInterface
func (m *MockAuthService) IssueToken(user *models.User) (*AuthResponse, error) {
	m.recordCall("IssueToken", user)

	if m.IssueTokenFunc != nil {
		return m.IssueTokenFunc(user)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	return &AuthResponse{
		Token:     "mock_token_" + user.ID,
		User:      *user,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

// ValidateToken implements AuthServiceInterface
func (m *MockAuthService) ValidateToken(tokenString string) (*models.User, error) {
	m.recordCall("ValidateToken", tokenString)

	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	if user, ok := m.Users[tokenString]; ok {
		return user, nil
	}
	return nil, ErrInvalidToken
}
