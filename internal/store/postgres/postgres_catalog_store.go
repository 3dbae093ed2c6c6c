package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/lib/pq"
)

const catalogColumns = `id, sku, title, description, category_code, price_cents, currency,
	condition, images, quantity, rank_score, approval_state, schedule_state, listing_state,
	external_listing_id`

type PostgresCatalogStore struct {
	db *sql.DB
}

func NewPostgresCatalogStore(db *sql.DB) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

func (r *PostgresCatalogStore) ListApprovedUnscheduled(ctx context.Context, limit int) ([]types.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM listpilot.catalog_items
		WHERE approval_state = $1
		  AND schedule_state IS NULL
		  AND category_code <> ''
		ORDER BY rank_score DESC NULLS LAST, id ASC
		LIMIT $2
	`, types.ApprovalApproved, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *PostgresCatalogStore) MarkScheduled(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.catalog_items
		SET schedule_state = $1, updated_at = NOW()
		WHERE id = ANY($2)
	`, types.ScheduleStateScheduled, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark items scheduled: %w", err)
	}
	return nil
}

func (r *PostgresCatalogStore) MarkListed(ctx context.Context, id int64, externalID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.catalog_items
		SET listing_state = $1,
		    external_listing_id = $2,
		    listing_error = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`, types.ListingStateActive, externalID, id)
	return err
}

func (r *PostgresCatalogStore) MarkListingError(ctx context.Context, id int64, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listpilot.catalog_items
		SET listing_state = $1,
		    listing_error = $2,
		    updated_at = NOW()
		WHERE id = $3
	`, types.ListingStateError, errMsg, id)
	return err
}

func (r *PostgresCatalogStore) FindByID(ctx context.Context, id int64) (*types.CatalogItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+`
		FROM listpilot.catalog_items
		WHERE id = $1
	`, id)
	item, err := scanCatalogItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return item, err
}

func scanCatalogItem(row rowScanner) (*types.CatalogItem, error) {
	var (
		item      types.CatalogItem
		price     sql.NullInt64
		condition sql.NullString
		images    pq.StringArray
	)
	err := row.Scan(
		&item.ID, &item.SKU, &item.Title, &item.Description, &item.CategoryCode, &price, &item.Currency,
		&condition, &images, &item.Quantity, &item.RankScore, &item.ApprovalState, &item.ScheduleState,
		&item.ListingState, &item.ExternalListingID,
	)
	if err != nil {
		return nil, err
	}
	item.PriceCents = price.Int64
	item.Condition = condition.String
	item.Images = []string(images)
	return &item, nil
}

var _ store.CatalogStore = (*PostgresCatalogStore)(nil)
