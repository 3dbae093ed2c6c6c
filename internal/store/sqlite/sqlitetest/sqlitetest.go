// Package sqlitetest provides migrated throwaway SQLite databases for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/RezaEskandarii/listpilot/internal/db"
	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/internal/store/sqlite"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/RezaEskandarii/listpilot/types/config"
	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated database in t.TempDir, closed at test cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "listpilot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Init(context.Background(), conn, config.SQLite, lock.NewLocalLockManager(), nil))
	return conn
}

// InsertItem stores item and returns its id. Zero fields fall back to the
// column defaults where the schema has one.
func InsertItem(t testing.TB, conn *sql.DB, item types.CatalogItem) int64 {
	t.Helper()

	if item.Currency == "" {
		item.Currency = "USD"
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.ApprovalState == "" {
		item.ApprovalState = types.ApprovalApproved
	}

	var price, condition any
	if item.PriceCents > 0 {
		price = item.PriceCents
	}
	if item.Condition != "" {
		condition = item.Condition
	}

	res, err := conn.Exec(`
		INSERT INTO catalog_items
			(sku, title, description, category_code, price_cents, currency, condition, images,
			 quantity, rank_score, approval_state, schedule_state, listing_state, external_listing_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.SKU, item.Title, item.Description, item.CategoryCode, price, item.Currency, condition,
		sqlite.EncodeImages(item.Images), item.Quantity, item.RankScore, item.ApprovalState,
		item.ScheduleState, item.ListingState, item.ExternalListingID)
	require.NoError(t, err)

	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// ValidItem returns an approved item that passes publish validation.
func ValidItem(sku, category string, rank float64) types.CatalogItem {
	return types.CatalogItem{
		SKU:          sku,
		Title:        "Item " + sku,
		Description:  "Description of " + sku,
		CategoryCode: category,
		PriceCents:   1999,
		Currency:     "USD",
		Condition:    "new",
		Images:       []string{"https://img.example/" + sku + ".jpg"},
		Quantity:     1,
		RankScore:    &rank,
	}
}
