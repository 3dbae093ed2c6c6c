package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
)

const catalogColumns = `id, sku, title, description, category_code, price_cents, currency,
	condition, images, quantity, rank_score, approval_state, schedule_state, listing_state,
	external_listing_id`

type SQLiteCatalogStore struct {
	db *sql.DB
}

func NewSQLiteCatalogStore(db *sql.DB) *SQLiteCatalogStore {
	return &SQLiteCatalogStore{db: db}
}

func (r *SQLiteCatalogStore) ListApprovedUnscheduled(ctx context.Context, limit int) ([]types.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_items
		WHERE approval_state = ?
		  AND schedule_state IS NULL
		  AND category_code <> ''
		ORDER BY rank_score IS NULL, rank_score DESC, id ASC
		LIMIT ?
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

func (r *SQLiteCatalogStore) MarkScheduled(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := inClause(ids)
	args = append([]any{types.ScheduleStateScheduled, ts(time.Now())}, args...)
	_, err := r.db.ExecContext(ctx, `
		UPDATE catalog_items
		SET schedule_state = ?, updated_at = ?
		WHERE id IN (`+in+`)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to mark items scheduled: %w", err)
	}
	return nil
}

func (r *SQLiteCatalogStore) MarkListed(ctx context.Context, id int64, externalID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE catalog_items
		SET listing_state = ?, external_listing_id = ?, listing_error = NULL, updated_at = ?
		WHERE id = ?
	`, types.ListingStateActive, externalID, ts(time.Now()), id)
	return err
}

func (r *SQLiteCatalogStore) MarkListingError(ctx context.Context, id int64, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE catalog_items
		SET listing_state = ?, listing_error = ?, updated_at = ?
		WHERE id = ?
	`, types.ListingStateError, errMsg, ts(time.Now()), id)
	return err
}

func (r *SQLiteCatalogStore) FindByID(ctx context.Context, id int64) (*types.CatalogItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, id)
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
		images    string
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
	if images != "" {
		if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
			return nil, fmt.Errorf("decode images of item %d: %w", item.ID, err)
		}
	}
	return &item, nil
}

// EncodeImages renders an image list in the column format used by this store.
func EncodeImages(images []string) string {
	if images == nil {
		images = []string{}
	}
	b, _ := json.Marshal(images)
	return string(b)
}

var _ store.CatalogStore = (*SQLiteCatalogStore)(nil)
