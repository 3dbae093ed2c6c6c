package token

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// defaultLifetime applies when the token endpoint omits expires_in.
const defaultLifetime = time.Hour

// Token is the result of a refresh grant.
type Token struct {
	AccessToken string
	// RefreshToken is the rotated refresh token, or the one that was sent
	// when the provider did not rotate it.
	RefreshToken string
	ExpiresAt    time.Time
}

// Refresher performs the OAuth2 refresh-token grant.
type Refresher interface {
	Refresh(ctx context.Context, accountID, clientID, clientSecret, refreshToken string) (*Token, error)
}

// OAuth2Refresher runs the grant through golang.org/x/oauth2 with HTTP Basic
// client authentication.
type OAuth2Refresher struct {
	tokenURL string
	timeout  time.Duration
	client   *http.Client
	now      func() time.Time
}

// NewOAuth2Refresher returns a refresher for tokenURL. A nil client selects
// http.DefaultClient.
func NewOAuth2Refresher(tokenURL string, timeout time.Duration, client *http.Client) *OAuth2Refresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuth2Refresher{
		tokenURL: tokenURL,
		timeout:  timeout,
		client:   client,
		now:      time.Now,
	}
}

func (r *OAuth2Refresher) Refresh(ctx context.Context, accountID, clientID, clientSecret, refreshToken string) (*Token, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classify(accountID, err)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = r.now().Add(defaultLifetime)
	}
	rotated := tok.RefreshToken
	if rotated == "" {
		rotated = refreshToken
	}

	return &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: rotated,
		ExpiresAt:    expiresAt,
	}, nil
}

// classify maps a grant failure onto RefreshError. Rejected credentials
// (400, 401, 403) are permanent; everything else, including network errors,
// may succeed on a later run.
func classify(accountID string, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return &RefreshError{AccountID: accountID, Retriable: true, Err: err}
	}

	status := re.Response.StatusCode
	retriable := true
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		retriable = false
	}
	return &RefreshError{
		AccountID:  accountID,
		StatusCode: status,
		Body:       string(re.Body),
		Retriable:  retriable,
		Err:        err,
	}
}
