package store

import (
	"context"
	"time"

	"github.com/RezaEskandarii/listpilot/types"
)

// CredentialStore holds one OAuth2 credential record per marketplace account.
// Client id, client secret and refresh token belong to the operator; the
// token manager only writes them when bootstrapping a record.
type CredentialStore interface {
	// Get returns ErrNotFound when the account has no record.
	Get(ctx context.Context, accountID string) (*types.Credential, error)

	// Save bootstraps a record. An existing record that already holds a
	// refresh token is left untouched.
	Save(ctx context.Context, cred types.Credential) error

	// SaveAccessToken updates access_token and expires_at only. Returns
	// ErrNotFound when the account has no record.
	SaveAccessToken(ctx context.Context, accountID, accessToken string, expiresAt, updatedAt time.Time) error

	// RotateRefreshToken replaces the refresh token only while it still
	// equals previous. Reports false when the record changed in between.
	RotateRefreshToken(ctx context.Context, accountID, previous, next string, updatedAt time.Time) (bool, error)
}
