package store

import (
	"context"

	"github.com/RezaEskandarii/listpilot/types"
)

// CatalogStore is the narrow view of the product catalog the pipeline needs.
type CatalogStore interface {
	// ListApprovedUnscheduled returns approved items with no schedule state and
	// a non-empty category, best ranked first, unranked last.
	ListApprovedUnscheduled(ctx context.Context, limit int) ([]types.CatalogItem, error)

	MarkScheduled(ctx context.Context, ids []int64) error
	MarkListed(ctx context.Context, id int64, externalID string) error
	MarkListingError(ctx context.Context, id int64, errMsg string) error

	FindByID(ctx context.Context, id int64) (*types.CatalogItem, error)
}
