package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
)

type PostgresCredentialStore struct {
	db *sql.DB
}

func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (r *PostgresCredentialStore) Get(ctx context.Context, accountID string) (*types.Credential, error) {
	var c types.Credential
	err := r.db.QueryRowContext(ctx, `
		SELECT account_id, client_id, client_secret, refresh_token, access_token, expires_at, updated_at
		FROM listpilot.marketplace_credentials
		WHERE account_id = $1
	`, accountID).Scan(
		&c.AccountID, &c.ClientID, &c.ClientSecret, &c.RefreshToken, &c.AccessToken, &c.ExpiresAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential for %s: %w", accountID, err)
	}
	return &c, nil
}

func (r *PostgresCredentialStore) Save(ctx context.Context, c types.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listpilot.marketplace_credentials AS c
			(account_id, client_id, client_secret, refresh_token, access_token, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			refresh_token = EXCLUDED.refresh_token,
			access_token = EXCLUDED.access_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		WHERE c.refresh_token = ''
	`, c.AccountID, c.ClientID, c.ClientSecret, c.RefreshToken, c.AccessToken, c.ExpiresAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save credential for %s: %w", c.AccountID, err)
	}
	return nil
}

func (r *PostgresCredentialStore) SaveAccessToken(ctx context.Context, accountID, accessToken string, expiresAt, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.marketplace_credentials
		SET access_token = $1, expires_at = $2, updated_at = $3
		WHERE account_id = $4
	`, accessToken, expiresAt, updatedAt, accountID)
	ok, err := anyRowAffected(res, err)
	if err != nil {
		return fmt.Errorf("failed to save access token for %s: %w", accountID, err)
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (r *PostgresCredentialStore) RotateRefreshToken(ctx context.Context, accountID, previous, next string, updatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.marketplace_credentials
		SET refresh_token = $1, updated_at = $2
		WHERE account_id = $3 AND refresh_token = $4
	`, next, updatedAt, accountID, previous)
	ok, err := anyRowAffected(res, err)
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token for %s: %w", accountID, err)
	}
	return ok, nil
}

var _ store.CredentialStore = (*PostgresCredentialStore)(nil)
