package mocks

import (
	"context"
	"sync"

	"github.com/RezaEskandarii/listpilot/internal/token"
)

// MockRefresher is a mock implementation of token.Refresher that counts grants.
type MockRefresher struct {
	RefreshFunc func(ctx context.Context, accountID, clientID, clientSecret, refreshToken string) (*token.Token, error)

	mu    sync.Mutex
	Calls int
	// LastClientID and LastRefreshToken record the most recent grant inputs.
	LastClientID     string
	LastRefreshToken string
}

func (m *MockRefresher) Refresh(ctx context.Context, accountID, clientID, clientSecret, refreshToken string) (*token.Token, error) {
	m.mu.Lock()
	m.Calls++
	m.LastClientID = clientID
	m.LastRefreshToken = refreshToken
	m.mu.Unlock()
	return m.RefreshFunc(ctx, accountID, clientID, clientSecret, refreshToken)
}

// CallCount returns Calls under the mock's lock.
func (m *MockRefresher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
