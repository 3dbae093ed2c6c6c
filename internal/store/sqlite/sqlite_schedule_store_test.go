package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/internal/store/sqlite"
	"github.com/RezaEskandarii/listpilot/internal/store/sqlite/sqlitetest"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteScheduleStore_Lifecycle(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	s := sqlite.NewSQLiteScheduleStore(conn)
	ctx := context.Background()

	itemA := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("A", "HOME", 0.9))
	itemB := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("B", "TOYS", 0.8))

	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	ids, err := s.BulkInsert(ctx, []types.NewScheduleEntry{
		{ItemID: itemA, Marketplace: "ebay", AccountID: "acc", ScheduledAt: now.Add(-time.Minute), Priority: 1},
		{ItemID: itemB, Marketplace: "ebay", AccountID: "acc", ScheduledAt: now.Add(-time.Minute), Priority: 2},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	due, err := s.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, itemB, due[0].ItemID, "higher priority first among equal times")
	assert.True(t, due[0].ScheduledAt.Equal(now.Add(-time.Minute)))

	ok, err := s.Claim(ctx, ids[0], "node-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, ids[0], "node-2", now)
	require.NoError(t, err)
	assert.False(t, ok, "second claim must lose")

	require.NoError(t, s.MarkCompleted(ctx, ids[0], "X-123", now))
	assert.ErrorIs(t, s.MarkError(ctx, ids[0], "late", now), store.ErrInvalidTransition)

	e, err := s.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, e.Status)
	require.NotNil(t, e.ListingID)
	assert.Equal(t, "X-123", *e.ListingID)
	require.NotNil(t, e.ClaimedBy)
	assert.Equal(t, "node-1", *e.ClaimedBy)
	require.NotNil(t, e.StartedAt)
	assert.True(t, e.StartedAt.Equal(now))
	require.NotNil(t, e.CompletedAt)

	open, err := s.ItemsWithOpenEntries(ctx, []int64{itemA, itemB})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{itemB: true}, open)

	counts, err := s.CountGroupedByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[state.StatusCompleted])
	assert.Equal(t, 1, counts[state.StatusScheduled])
	assert.Equal(t, 0, counts[state.StatusError])
}

func TestSQLiteScheduleStore_FetchDueSkipsFutureAndClaimed(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	s := sqlite.NewSQLiteScheduleStore(conn)
	ctx := context.Background()
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	item := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("A", "HOME", 1))
	ids, err := s.BulkInsert(ctx, []types.NewScheduleEntry{
		{ItemID: item, Marketplace: "m", AccountID: "a", ScheduledAt: now.Add(-2 * time.Hour)},
		{ItemID: item, Marketplace: "m", AccountID: "a", ScheduledAt: now.Add(time.Second)},
		{ItemID: item, Marketplace: "m", AccountID: "a", ScheduledAt: now},
	})
	require.NoError(t, err)

	ok, err := s.Claim(ctx, ids[0], "n", now)
	require.NoError(t, err)
	require.True(t, ok)

	due, err := s.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ids[2], due[0].ID)
}

func TestSQLiteScheduleStore_ResetStaleAndRequeue(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	s := sqlite.NewSQLiteScheduleStore(conn)
	ctx := context.Background()
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	item := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("A", "HOME", 1))
	ids, err := s.BulkInsert(ctx, []types.NewScheduleEntry{
		{ItemID: item, Marketplace: "m", AccountID: "a", ScheduledAt: now.Add(-2 * time.Hour)},
		{ItemID: item, Marketplace: "m", AccountID: "a", ScheduledAt: now.Add(-2 * time.Hour)},
	})
	require.NoError(t, err)

	for i, startedAt := range []time.Time{now.Add(-time.Hour), now.Add(-time.Minute)} {
		ok, err := s.Claim(ctx, ids[i], "n", startedAt)
		require.NoError(t, err)
		require.True(t, ok)
	}

	n, err := s.ResetStale(ctx, now.Add(-30*time.Minute), state.StatusError, "claim expired after 30m0s", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stale, err := s.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, state.StatusError, stale.Status)
	require.NotNil(t, stale.ErrorMessage)
	assert.Contains(t, *stale.ErrorMessage, "claim expired")

	fresh, err := s.FindByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, state.StatusRunning, fresh.Status)

	ok, err := s.Requeue(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, ok, "only ERROR entries can be requeued")

	ok, err = s.Requeue(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, ok)

	requeued, err := s.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, state.StatusScheduled, requeued.Status)
	assert.Nil(t, requeued.ErrorMessage)
	assert.Nil(t, requeued.StartedAt)
	assert.Nil(t, requeued.ClaimedBy)
}

func TestSQLiteScheduleStore_ResetStaleToScheduled(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	s := sqlite.NewSQLiteScheduleStore(conn)
	ctx := context.Background()
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	item := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("A", "HOME", 1))
	ids, err := s.BulkInsert(ctx, []types.NewScheduleEntry{
		{ItemID: item, Marketplace: "m", AccountID: "a", ScheduledAt: now.Add(-2 * time.Hour)},
	})
	require.NoError(t, err)
	ok, err := s.Claim(ctx, ids[0], "n", now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	n, err := s.ResetStale(ctx, now.Add(-30*time.Minute), state.StatusScheduled, "", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	due, err := s.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestSQLiteScheduleStore_FindByID_NotFound(t *testing.T) {
	s := sqlite.NewSQLiteScheduleStore(sqlitetest.NewDB(t))
	_, err := s.FindByID(context.Background(), 12345)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
