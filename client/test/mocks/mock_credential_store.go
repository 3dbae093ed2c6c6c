package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
)

// MockCredentialStore is an in-memory store.CredentialStore that follows the
// write rules of the real stores. The Func fields override the map when set.
type MockCredentialStore struct {
	GetFunc                func(ctx context.Context, accountID string) (*types.Credential, error)
	SaveFunc               func(ctx context.Context, cred types.Credential) error
	SaveAccessTokenFunc    func(ctx context.Context, accountID, accessToken string, expiresAt, updatedAt time.Time) error
	RotateRefreshTokenFunc func(ctx context.Context, accountID, previous, next string, updatedAt time.Time) (bool, error)

	mu                 sync.Mutex
	records            map[string]types.Credential
	SaveCalls          int
	SaveAccessCalls    int
	RotateRefreshCalls int
}

func NewMockCredentialStore(records ...types.Credential) *MockCredentialStore {
	m := &MockCredentialStore{records: make(map[string]types.Credential)}
	for _, r := range records {
		m.records[r.AccountID] = r
	}
	return m
}

func (m *MockCredentialStore) Get(ctx context.Context, accountID string) (*types.Credential, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[accountID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *MockCredentialStore) Save(ctx context.Context, cred types.Credential) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cred)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]types.Credential)
	}
	if existing, ok := m.records[cred.AccountID]; ok && existing.RefreshToken != "" {
		return nil
	}
	m.records[cred.AccountID] = cred
	return nil
}

func (m *MockCredentialStore) SaveAccessToken(ctx context.Context, accountID, accessToken string, expiresAt, updatedAt time.Time) error {
	m.mu.Lock()
	m.SaveAccessCalls++
	m.mu.Unlock()
	if m.SaveAccessTokenFunc != nil {
		return m.SaveAccessTokenFunc(ctx, accountID, accessToken, expiresAt, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[accountID]
	if !ok {
		return store.ErrNotFound
	}
	r.AccessToken = &accessToken
	r.ExpiresAt = &expiresAt
	r.UpdatedAt = updatedAt
	m.records[accountID] = r
	return nil
}

func (m *MockCredentialStore) RotateRefreshToken(ctx context.Context, accountID, previous, next string, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	m.RotateRefreshCalls++
	m.mu.Unlock()
	if m.RotateRefreshTokenFunc != nil {
		return m.RotateRefreshTokenFunc(ctx, accountID, previous, next, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[accountID]
	if !ok || r.RefreshToken != previous {
		return false, nil
	}
	r.RefreshToken = next
	r.UpdatedAt = updatedAt
	m.records[accountID] = r
	return true, nil
}

// Put replaces a record outright, the way an operator edit would.
func (m *MockCredentialStore) Put(cred types.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]types.Credential)
	}
	m.records[cred.AccountID] = cred
}

// Record returns the stored credential for accountID.
func (m *MockCredentialStore) Record(accountID string) (types.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[accountID]
	return r, ok
}

var _ store.CredentialStore = (*MockCredentialStore)(nil)
