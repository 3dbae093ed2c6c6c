package test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/RezaEskandarii/listpilot/client"
	"github.com/RezaEskandarii/listpilot/client/test/mocks"
	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/internal/marketplace"
	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/internal/store/sqlite"
	"github.com/RezaEskandarii/listpilot/internal/store/sqlite/sqlitetest"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/RezaEskandarii/listpilot/types/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingMarkCatalog simulates the catalog update failing after the insert.
type failingMarkCatalog struct {
	*sqlite.SQLiteCatalogStore
}

func (failingMarkCatalog) MarkScheduled(ctx context.Context, ids []int64) error {
	return errors.New("catalog unavailable")
}

func TestGenerator_BackToBackRunsDoNotDoubleSchedule(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	schedules := sqlite.NewSQLiteScheduleStore(conn)
	catalog := sqlite.NewSQLiteCatalogStore(conn)
	for i, cat := range []string{"HOME", "TOYS", "HOME", "BOOKS", "TOYS", "HOME"} {
		sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem(fmt.Sprintf("SKU-%d", i), cat, float64(10-i)))
	}

	settings := scenarioSettings()
	ctx := context.Background()

	first := client.NewScheduleGenerator(schedules, catalog,
		client.WithGeneratorLock(lock.NewLocalLockManager()),
		client.WithGeneratorClock(fixedClock(tuesday0800)),
		client.WithRand(seeded(1)),
	)
	n, err := first.GenerateDailySchedule(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	n, err = first.GenerateDailySchedule(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	counts, err := schedules.CountGroupedByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, counts[state.StatusScheduled])
}

func TestGenerator_OpenEntriesGuardWhenCatalogMarkFailed(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	schedules := sqlite.NewSQLiteScheduleStore(conn)
	catalog := failingMarkCatalog{sqlite.NewSQLiteCatalogStore(conn)}
	for i, cat := range []string{"HOME", "TOYS", "BOOKS"} {
		sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem(fmt.Sprintf("SKU-%d", i), cat, float64(10-i)))
	}
	ctx := context.Background()

	gen := client.NewScheduleGenerator(schedules, catalog,
		client.WithGeneratorClock(fixedClock(tuesday0800)),
		client.WithRand(seeded(2)),
	)
	n, err := gen.GenerateDailySchedule(ctx, scenarioSettings())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// items are still unscheduled in the catalog, but each has an open entry
	n, err = gen.GenerateDailySchedule(ctx, scenarioSettings())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	counts, err := schedules.CountGroupedByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[state.StatusScheduled])
}

// fetchBarrier holds every FetchDue caller until all instances have fetched,
// so each instance sees the full due set before anyone claims.
type fetchBarrier struct {
	*sqlite.SQLiteScheduleStore
	wg *sync.WaitGroup
}

func (b fetchBarrier) FetchDue(ctx context.Context, now time.Time, limit int) ([]types.ScheduleEntry, error) {
	entries, err := b.SQLiteScheduleStore.FetchDue(ctx, now, limit)
	b.wg.Done()
	b.wg.Wait()
	return entries, err
}

// seedDue inserts one due entry per item and returns the entry ids.
func seedDue(t *testing.T, schedules *sqlite.SQLiteScheduleStore, itemIDs []int64, at time.Time) []int64 {
	t.Helper()
	entries := make([]types.NewScheduleEntry, len(itemIDs))
	for i, id := range itemIDs {
		entries[i] = types.NewScheduleEntry{
			ItemID:      id,
			Marketplace: "ebay",
			AccountID:   "acc-1",
			ScheduledAt: at,
			Priority:    len(itemIDs) - i,
		}
	}
	ids, err := schedules.BulkInsert(context.Background(), entries)
	require.NoError(t, err)
	return ids
}

func TestDispatcher_ConcurrentInstancesNeverDoubleClaim(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	schedules := sqlite.NewSQLiteScheduleStore(conn)
	catalog := sqlite.NewSQLiteCatalogStore(conn)

	const entries = 24
	var itemIDs []int64
	for i := 0; i < entries; i++ {
		itemIDs = append(itemIDs, sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem(fmt.Sprintf("SKU-%02d", i), "HOME", float64(i))))
	}
	seedDue(t, schedules, itemIDs, time.Now().Add(-time.Hour))

	var mu sync.Mutex
	publishes := make(map[string]int)
	adapter := &mocks.MockAdapter{
		PublishFunc: func(ctx context.Context, listing marketplace.Listing, bearerToken string) (*marketplace.PublishResult, error) {
			mu.Lock()
			publishes[listing.SKU]++
			mu.Unlock()
			return &marketplace.PublishResult{ExternalID: "EXT-" + listing.SKU}, nil
		},
	}

	const instances = 4
	var fetched sync.WaitGroup
	fetched.Add(instances)
	barrier := fetchBarrier{SQLiteScheduleStore: schedules, wg: &fetched}

	results := make([]*client.BatchResult, instances)
	var wg sync.WaitGroup
	for i := 0; i < instances; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := client.NewDispatcher(barrier, catalog, &mocks.MockTokenProvider{}, adapter,
				client.WithInstance(fmt.Sprintf("node-%d", i)))
			res, err := d.RunDueSchedules(context.Background(), entries)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	processed, skipped := 0, 0
	for _, r := range results {
		require.NotNil(t, r)
		processed += r.Processed
		skipped += r.Skipped
	}
	assert.Equal(t, entries, processed, "every entry processed exactly once across instances")
	assert.Equal(t, entries*instances, processed+skipped, "every instance contended for every entry")
	assert.Len(t, publishes, entries)
	for sku, n := range publishes {
		assert.Equal(t, 1, n, "%s published %d times", sku, n)
	}

	counts, err := schedules.CountGroupedByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries, counts[state.StatusCompleted])
}

func TestDispatcher_LeavesRunningEntriesUntouched(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	schedules := sqlite.NewSQLiteScheduleStore(conn)
	catalog := sqlite.NewSQLiteCatalogStore(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	var itemIDs []int64
	for i := 0; i < 5; i++ {
		itemIDs = append(itemIDs, sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem(fmt.Sprintf("SKU-%d", i), "HOME", 1)))
	}
	ids := seedDue(t, schedules, itemIDs, now.Add(-10*time.Minute))

	// two entries left RUNNING by a crashed run
	for _, id := range ids[3:] {
		ok, err := schedules.Claim(ctx, id, "crashed", now.Add(-5*time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
	}

	adapter := &mocks.MockAdapter{}
	d := client.NewDispatcher(schedules, catalog, &mocks.MockTokenProvider{}, adapter)
	res, err := d.RunDueSchedules(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 3, res.Completed)
	assert.Equal(t, 3, adapter.CallCount())

	for _, id := range ids[3:] {
		e, err := schedules.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, state.StatusRunning, e.Status)
		require.NotNil(t, e.ClaimedBy)
		assert.Equal(t, "crashed", *e.ClaimedBy)
	}
}

func TestDispatcher_PublishedListingIsRecorded(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	schedules := sqlite.NewSQLiteScheduleStore(conn)
	catalog := sqlite.NewSQLiteCatalogStore(conn)
	ctx := context.Background()

	itemID := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("LAMP-1", "HOME", 1))
	ids := seedDue(t, schedules, []int64{itemID}, time.Now().Add(-time.Minute))

	adapter := &mocks.MockAdapter{
		PublishFunc: func(ctx context.Context, listing marketplace.Listing, bearerToken string) (*marketplace.PublishResult, error) {
			return &marketplace.PublishResult{ExternalID: "X-123"}, nil
		},
	}
	d := client.NewDispatcher(schedules, catalog, &mocks.MockTokenProvider{}, adapter)
	_, err := d.RunDueSchedules(ctx, 10)
	require.NoError(t, err)

	entry, err := schedules.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, state.StatusCompleted, entry.Status)
	require.NotNil(t, entry.ListingID)
	assert.Equal(t, "X-123", *entry.ListingID)
	assert.NotNil(t, entry.CompletedAt)

	item, err := catalog.FindByID(ctx, itemID)
	require.NoError(t, err)
	require.NotNil(t, item.ListingState)
	assert.Equal(t, types.ListingStateActive, *item.ListingState)
	require.NotNil(t, item.ExternalListingID)
	assert.Equal(t, "X-123", *item.ExternalListingID)
}

func TestDispatcher_StaleSweepAndRequeue(t *testing.T) {
	conn := sqlitetest.NewDB(t)
	schedules := sqlite.NewSQLiteScheduleStore(conn)
	catalog := sqlite.NewSQLiteCatalogStore(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	itemID := sqlitetest.InsertItem(t, conn, sqlitetest.ValidItem("LAMP-1", "HOME", 1))
	ids := seedDue(t, schedules, []int64{itemID}, now.Add(-2*time.Hour))
	ok, err := schedules.Claim(ctx, ids[0], "crashed", now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	adapter := &mocks.MockAdapter{}
	d := client.NewDispatcher(schedules, catalog, &mocks.MockTokenProvider{}, adapter,
		client.WithStaleSweep(30*time.Minute, config.StaleToError))

	res, err := d.RunDueSchedules(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)

	entry, err := schedules.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, state.StatusError, entry.Status)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "claim expired")

	require.NoError(t, d.Requeue(ctx, ids[0]))

	res, err = d.RunDueSchedules(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 1, adapter.CallCount())
}
