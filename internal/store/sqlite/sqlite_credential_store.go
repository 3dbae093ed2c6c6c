package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
)

type SQLiteCredentialStore struct {
	db *sql.DB
}

func NewSQLiteCredentialStore(db *sql.DB) *SQLiteCredentialStore {
	return &SQLiteCredentialStore{db: db}
}

func (r *SQLiteCredentialStore) Get(ctx context.Context, accountID string) (*types.Credential, error) {
	var c types.Credential
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id, client_id, client_secret, refresh_token, access_token, expires_at, updated_at
		FROM marketplace_credentials
		WHERE account_id = ?
	`, accountID).Scan(
		&c.AccountID, &c.ClientID, &c.ClientSecret, &c.RefreshToken, &c.AccessToken,
		nullTime{&c.ExpiresAt}, timeValue{&c.UpdatedAt},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential for %s: %w", accountID, err)
	}
	return &c, nil
}

func (r *SQLiteCredentialStore) Save(ctx context.Context, c types.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO marketplace_credentials
			(account_id, client_id, client_secret, refresh_token, access_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			refresh_token = excluded.refresh_token,
			access_token = excluded.access_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
		WHERE marketplace_credentials.refresh_token = ''
	`, c.AccountID, c.ClientID, c.ClientSecret, c.RefreshToken, c.AccessToken, nullableTS(c.ExpiresAt), ts(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save credential for %s: %w", c.AccountID, err)
	}
	return nil
}

func (r *SQLiteCredentialStore) SaveAccessToken(ctx context.Context, accountID, accessToken string, expiresAt, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE marketplace_credentials
		SET access_token = ?, expires_at = ?, updated_at = ?
		WHERE account_id = ?
	`, accessToken, ts(expiresAt), ts(updatedAt), accountID)
	ok, err := anyRowAffected(res, err)
	if err != nil {
		return fmt.Errorf("failed to save access token for %s: %w", accountID, err)
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (r *SQLiteCredentialStore) RotateRefreshToken(ctx context.Context, accountID, previous, next string, updatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE marketplace_credentials
		SET refresh_token = ?, updated_at = ?
		WHERE account_id = ? AND refresh_token = ?
	`, next, ts(updatedAt), accountID, previous)
	ok, err := anyRowAffected(res, err)
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token for %s: %w", accountID, err)
	}
	return ok, nil
}

var _ store.CredentialStore = (*SQLiteCredentialStore)(nil)
