package mocks

import (
	"context"
	"sync"
)

// MockTokenProvider is a mock implementation of client.TokenProvider for testing.
type MockTokenProvider struct {
	GetAccessTokenFunc  func(ctx context.Context, accountID string) (string, error)
	InvalidateCacheFunc func(accountID string)

	mu          sync.Mutex
	Invalidated []string
}

func (m *MockTokenProvider) GetAccessToken(ctx context.Context, accountID string) (string, error) {
	if m.GetAccessTokenFunc != nil {
		return m.GetAccessTokenFunc(ctx, accountID)
	}
	return "token-" + accountID, nil
}

func (m *MockTokenProvider) InvalidateCache(accountID string) {
	m.mu.Lock()
	m.Invalidated = append(m.Invalidated, accountID)
	m.mu.Unlock()
	if m.InvalidateCacheFunc != nil {
		m.InvalidateCacheFunc(accountID)
	}
}
