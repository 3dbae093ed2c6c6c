package token

import (
	"errors"
	"fmt"
)

// ErrCredentialsMissing means neither the credential record nor the fallback
// configuration holds a refresh token for the account. Not retriable.
var ErrCredentialsMissing = errors.New("marketplace credentials missing")

// RefreshError is a failed refresh-token grant.
type RefreshError struct {
	AccountID  string
	StatusCode int    // zero for network failures
	Body       string // raw token endpoint response, for diagnostics
	Retriable  bool
	Err        error
}

func (e *RefreshError) Error() string {
	kind := "invalid credentials"
	if e.Retriable {
		kind = "transient failure"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh for %s: %s (status %d): %s", e.AccountID, kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token refresh for %s: %s: %v", e.AccountID, kind, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// IsRetriable reports whether err is a refresh failure that may succeed later.
func IsRetriable(err error) bool {
	var re *RefreshError
	return errors.As(err, &re) && re.Retriable
}
