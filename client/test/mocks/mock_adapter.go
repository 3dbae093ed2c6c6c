package mocks

import (
	"context"
	"sync"

	"github.com/RezaEskandarii/listpilot/internal/marketplace"
)

// MockAdapter is a mock implementation of marketplace.Adapter for testing.
// Calls counts every Publish invocation.
type MockAdapter struct {
	PublishFunc func(ctx context.Context, listing marketplace.Listing, bearerToken string) (*marketplace.PublishResult, error)

	mu     sync.Mutex
	Calls  int
	Tokens []string
}

func (m *MockAdapter) Publish(ctx context.Context, listing marketplace.Listing, bearerToken string) (*marketplace.PublishResult, error) {
	m.mu.Lock()
	m.Calls++
	m.Tokens = append(m.Tokens, bearerToken)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, listing, bearerToken)
	}
	return &marketplace.PublishResult{ExternalID: "MOCK-" + listing.SKU}, nil
}

// CallCount returns Calls under the mock's lock.
func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
