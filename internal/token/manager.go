package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
)

// DefaultExpiryMargin is how long before expiry a token stops being handed out.
const DefaultExpiryMargin = 5 * time.Minute

// Fallback is the externally supplied credential triple used when an account
// has no persisted refresh token.
type Fallback struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

func (f Fallback) complete() bool {
	return f.ClientID != "" && f.ClientSecret != "" && f.RefreshToken != ""
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// Manager hands out valid access tokens per marketplace account.
//
// Resolution order: the in-process cache, then the access token persisted on
// the credential record, then a refresh grant whose result is cached and
// written back to the record so that other processes can reuse it.
type Manager struct {
	creds     store.CredentialStore
	refresher Refresher
	fallback  Fallback
	margin    time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu       sync.Mutex
	cache    map[string]cachedToken
	rejected map[string]string
	locks    map[string]*sync.Mutex
}

type Option func(*Manager)

func WithFallback(f Fallback) Option {
	return func(m *Manager) { m.fallback = f }
}

func WithExpiryMargin(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.margin = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(creds store.CredentialStore, refresher Refresher, opts ...Option) *Manager {
	m := &Manager{
		creds:     creds,
		refresher: refresher,
		margin:    DefaultExpiryMargin,
		now:       time.Now,
		logger:    slog.Default(),
		cache:     make(map[string]cachedToken),
		rejected:  make(map[string]string),
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "token_manager")
	return m
}

// GetAccessToken returns a token valid for at least the expiry margin.
// Concurrent callers for one account trigger at most one refresh.
func (m *Manager) GetAccessToken(ctx context.Context, accountID string) (string, error) {
	if tok, ok := m.fromCache(accountID); ok {
		return tok, nil
	}

	l := m.accountLock(accountID)
	l.Lock()
	defer l.Unlock()

	// another caller may have refreshed while we waited
	if tok, ok := m.fromCache(accountID); ok {
		return tok, nil
	}

	rec, err := m.creds.Get(ctx, accountID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load credentials for %s: %w", accountID, err)
	}

	if rec != nil && rec.AccessToken != nil && rec.ExpiresAt != nil &&
		m.usable(*rec.ExpiresAt) && !m.isRejected(accountID, *rec.AccessToken) {
		m.store(accountID, *rec.AccessToken, *rec.ExpiresAt)
		m.logger.Debug("adopted persisted access token", "account_id", accountID)
		return *rec.AccessToken, nil
	}

	clientID, clientSecret, refreshToken, source := m.resolve(rec)
	if refreshToken == "" {
		return "", fmt.Errorf("%w for account %s", ErrCredentialsMissing, accountID)
	}

	tok, err := m.refresher.Refresh(ctx, accountID, clientID, clientSecret, refreshToken)
	if err != nil {
		m.logger.Warn("token refresh failed", "account_id", accountID, "source", source, "error", err)
		return "", err
	}

	m.persist(ctx, accountID, rec, clientID, clientSecret, refreshToken, tok)

	expiresAt := tok.ExpiresAt
	m.store(accountID, tok.AccessToken, expiresAt)
	m.logger.Info("access token refreshed", "account_id", accountID, "source", source, "expires_at", expiresAt)
	return tok.AccessToken, nil
}

// persist writes a refreshed token back. A record that already holds a
// refresh token only gets its access token updated, plus the refresh token
// when the provider rotated it and the record still holds the one that was
// sent. Otherwise the resolved triple bootstraps the record. Failures are
// logged; the token is still good for this process.
func (m *Manager) persist(ctx context.Context, accountID string, rec *types.Credential, clientID, clientSecret, sentRefreshToken string, tok *Token) {
	now := m.now()

	if !rec.HasRefreshToken() {
		cred := types.Credential{
			AccountID:    accountID,
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RefreshToken: tok.RefreshToken,
			AccessToken:  &tok.AccessToken,
			ExpiresAt:    &tok.ExpiresAt,
			UpdatedAt:    now,
		}
		if err := m.creds.Save(ctx, cred); err != nil {
			m.logger.Error("failed to persist credential record", "account_id", accountID, "error", err)
		}
		return
	}

	if tok.RefreshToken != "" && tok.RefreshToken != sentRefreshToken {
		rotated, err := m.creds.RotateRefreshToken(ctx, accountID, sentRefreshToken, tok.RefreshToken, now)
		switch {
		case err != nil:
			m.logger.Error("failed to persist rotated refresh token", "account_id", accountID, "error", err)
		case !rotated:
			m.logger.Warn("credential record changed during refresh, keeping stored refresh token", "account_id", accountID)
		default:
			m.logger.Info("refresh token rotated", "account_id", accountID)
		}
	}

	if err := m.creds.SaveAccessToken(ctx, accountID, tok.AccessToken, tok.ExpiresAt, now); err != nil {
		m.logger.Error("failed to persist refreshed token", "account_id", accountID, "error", err)
	}
}

// InvalidateCache drops the cached token for accountID. The dropped token is
// also ignored on the credential record, so the next call refreshes.
func (m *Manager) InvalidateCache(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cache[accountID]; ok {
		m.rejected[accountID] = c.accessToken
	}
	delete(m.cache, accountID)
}

// resolve picks the credential triple from exactly one source: the record
// when it holds a refresh token, the fallback otherwise.
func (m *Manager) resolve(rec *types.Credential) (clientID, clientSecret, refreshToken, source string) {
	if rec.HasRefreshToken() {
		return rec.ClientID, rec.ClientSecret, rec.RefreshToken, "record"
	}
	if m.fallback.complete() {
		return m.fallback.ClientID, m.fallback.ClientSecret, m.fallback.RefreshToken, "fallback"
	}
	return "", "", "", ""
}

func (m *Manager) usable(expiresAt time.Time) bool {
	return expiresAt.After(m.now().Add(m.margin))
}

func (m *Manager) fromCache(accountID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cache[accountID]
	if !ok || !m.usable(c.expiresAt) {
		return "", false
	}
	return c.accessToken, true
}

func (m *Manager) store(accountID, accessToken string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[accountID] = cachedToken{accessToken: accessToken, expiresAt: expiresAt}
	delete(m.rejected, accountID)
}

func (m *Manager) isRejected(accountID, accessToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[accountID] == accessToken
}

func (m *Manager) accountLock(accountID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[accountID] = l
	}
	return l
}
