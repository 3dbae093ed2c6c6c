package mocks

import (
	"context"

	"github.com/RezaEskandarii/listpilot/types"
)

// MockCatalogStore is a mock implementation of store.CatalogStore for testing.
type MockCatalogStore struct {
	ListApprovedUnscheduledFunc func(ctx context.Context, limit int) ([]types.CatalogItem, error)
	MarkScheduledFunc           func(ctx context.Context, ids []int64) error
	MarkListedFunc              func(ctx context.Context, id int64, externalID string) error
	MarkListingErrorFunc        func(ctx context.Context, id int64, errMsg string) error
	FindByIDFunc                func(ctx context.Context, id int64) (*types.CatalogItem, error)
}

func (m *MockCatalogStore) ListApprovedUnscheduled(ctx context.Context, limit int) ([]types.CatalogItem, error) {
	if m.ListApprovedUnscheduledFunc != nil {
		return m.ListApprovedUnscheduledFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockCatalogStore) MarkScheduled(ctx context.Context, ids []int64) error {
	if m.MarkScheduledFunc != nil {
		return m.MarkScheduledFunc(ctx, ids)
	}
	return nil
}

func (m *MockCatalogStore) MarkListed(ctx context.Context, id int64, externalID string) error {
	if m.MarkListedFunc != nil {
		return m.MarkListedFunc(ctx, id, externalID)
	}
	return nil
}

func (m *MockCatalogStore) MarkListingError(ctx context.Context, id int64, errMsg string) error {
	if m.MarkListingErrorFunc != nil {
		return m.MarkListingErrorFunc(ctx, id, errMsg)
	}
	return nil
}

func (m *MockCatalogStore) FindByID(ctx context.Context, id int64) (*types.CatalogItem, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}
