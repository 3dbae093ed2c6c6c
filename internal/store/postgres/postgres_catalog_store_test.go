package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var catalogRowColumns = []string{
	"id", "sku", "title", "description", "category_code", "price_cents", "currency",
	"condition", "images", "quantity", "rank_score", "approval_state", "schedule_state",
	"listing_state", "external_listing_id",
}

func TestPostgresCatalogStore_ListApprovedUnscheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresCatalogStore(db)

	mock.ExpectQuery("SELECT (.+) FROM listpilot.catalog_items").
		WithArgs(types.ApprovalApproved, 45).
		WillReturnRows(sqlmock.NewRows(catalogRowColumns).
			AddRow(1, "SKU-1", "Lamp", "", "HOME", 2599, "USD", "new", "{a.jpg,b.jpg}", 1, 0.9, "approved", nil, nil, nil).
			AddRow(2, "SKU-2", "Mug", "", "KITCHEN", nil, "USD", nil, "{}", 1, nil, "approved", nil, nil, nil))

	items, err := s.ListApprovedUnscheduled(context.Background(), 45)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, []string{"a.jpg", "b.jpg"}, items[0].Images)
	assert.Equal(t, int64(2599), items[0].PriceCents)
	require.NotNil(t, items[0].RankScore)
	assert.Equal(t, 0.9, *items[0].RankScore)

	assert.Nil(t, items[1].RankScore)
	assert.Equal(t, int64(0), items[1].PriceCents)
	assert.Equal(t, "", items[1].Condition)
	assert.Empty(t, items[1].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogStore_MarkScheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresCatalogStore(db)

	mock.ExpectExec("UPDATE listpilot.catalog_items").
		WithArgs(types.ScheduleStateScheduled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, s.MarkScheduled(context.Background(), []int64{1, 2, 3}))
	require.NoError(t, s.MarkScheduled(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogStore_MarkListed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresCatalogStore(db)

	mock.ExpectExec("UPDATE listpilot.catalog_items").
		WithArgs(types.ListingStateActive, "X-123", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkListed(context.Background(), 4, "X-123"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogStore_MarkListingError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresCatalogStore(db)

	mock.ExpectExec("UPDATE listpilot.catalog_items").
		WithArgs(types.ListingStateError, "missing images", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.MarkListingError(context.Background(), 4, "missing images"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCatalogStore_FindByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresCatalogStore(db)

	mock.ExpectQuery("SELECT (.+) FROM listpilot.catalog_items").
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(catalogRowColumns))

	_, err = s.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
