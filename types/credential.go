package types

import "time"

// Credential is the persisted OAuth2 material of one marketplace account.
type Credential struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  *string
	ExpiresAt    *time.Time
	UpdatedAt    time.Time
}

// HasRefreshToken reports whether the record can be used for a refresh grant
// on its own.
func (c *Credential) HasRefreshToken() bool {
	return c != nil && c.RefreshToken != ""
}
