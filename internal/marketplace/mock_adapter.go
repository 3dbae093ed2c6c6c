package marketplace

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// MockAdapter never touches the network. It returns a listing id derived
// from the SKU, so repeated dry runs produce the same ids.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

func (MockAdapter) Publish(ctx context.Context, listing Listing, bearerToken string) (*PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Failure{Kind: KindTransient, Message: err.Error()}
	}
	if strings.TrimSpace(bearerToken) == "" {
		return nil, &Failure{Kind: KindAuthInvalid, Message: "missing bearer token", StatusCode: 401}
	}
	if listing.SKU == "" {
		return nil, &Failure{Kind: KindValidation, Message: "sku is required", StatusCode: 422}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(listing.SKU))
	return &PublishResult{ExternalID: fmt.Sprintf("MOCK-%08X", h.Sum32())}, nil
}
