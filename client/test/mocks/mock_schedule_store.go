package mocks

import (
	"context"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/types"
)

// MockScheduleStore is a mock implementation of store.ScheduleStore for testing.
type MockScheduleStore struct {
	BulkInsertFunc           func(ctx context.Context, entries []types.NewScheduleEntry) ([]int64, error)
	ItemsWithOpenEntriesFunc func(ctx context.Context, itemIDs []int64) (map[int64]bool, error)
	FetchDueFunc             func(ctx context.Context, now time.Time, limit int) ([]types.ScheduleEntry, error)
	ClaimFunc                func(ctx context.Context, id int64, claimedBy string, now time.Time) (bool, error)
	MarkCompletedFunc        func(ctx context.Context, id int64, listingID string, now time.Time) error
	MarkErrorFunc            func(ctx context.Context, id int64, errMsg string, now time.Time) error
	ResetStaleFunc           func(ctx context.Context, olderThan time.Time, to state.ScheduleStatus, errMsg string, now time.Time) (int64, error)
	RequeueFunc              func(ctx context.Context, id int64) (bool, error)
	FindByIDFunc             func(ctx context.Context, id int64) (*types.ScheduleEntry, error)
	CountGroupedByStatusFunc func(ctx context.Context) (map[state.ScheduleStatus]int, error)
	PingFunc                 func(ctx context.Context) error
	CloseFunc                func() error
}

func (m *MockScheduleStore) BulkInsert(ctx context.Context, entries []types.NewScheduleEntry) ([]int64, error) {
	if m.BulkInsertFunc != nil {
		return m.BulkInsertFunc(ctx, entries)
	}
	ids := make([]int64, len(entries))
	for i := range entries {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

func (m *MockScheduleStore) ItemsWithOpenEntries(ctx context.Context, itemIDs []int64) (map[int64]bool, error) {
	if m.ItemsWithOpenEntriesFunc != nil {
		return m.ItemsWithOpenEntriesFunc(ctx, itemIDs)
	}
	return map[int64]bool{}, nil
}

func (m *MockScheduleStore) FetchDue(ctx context.Context, now time.Time, limit int) ([]types.ScheduleEntry, error) {
	if m.FetchDueFunc != nil {
		return m.FetchDueFunc(ctx, now, limit)
	}
	return nil, nil
}

func (m *MockScheduleStore) Claim(ctx context.Context, id int64, claimedBy string, now time.Time) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, id, claimedBy, now)
	}
	return true, nil
}

func (m *MockScheduleStore) MarkCompleted(ctx context.Context, id int64, listingID string, now time.Time) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, id, listingID, now)
	}
	return nil
}

func (m *MockScheduleStore) MarkError(ctx context.Context, id int64, errMsg string, now time.Time) error {
	if m.MarkErrorFunc != nil {
		return m.MarkErrorFunc(ctx, id, errMsg, now)
	}
	return nil
}

func (m *MockScheduleStore) ResetStale(ctx context.Context, olderThan time.Time, to state.ScheduleStatus, errMsg string, now time.Time) (int64, error) {
	if m.ResetStaleFunc != nil {
		return m.ResetStaleFunc(ctx, olderThan, to, errMsg, now)
	}
	return 0, nil
}

func (m *MockScheduleStore) Requeue(ctx context.Context, id int64) (bool, error) {
	if m.RequeueFunc != nil {
		return m.RequeueFunc(ctx, id)
	}
	return true, nil
}

func (m *MockScheduleStore) FindByID(ctx context.Context, id int64) (*types.ScheduleEntry, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockScheduleStore) CountGroupedByStatus(ctx context.Context) (map[state.ScheduleStatus]int, error) {
	if m.CountGroupedByStatusFunc != nil {
		return m.CountGroupedByStatusFunc(ctx)
	}
	return map[state.ScheduleStatus]int{}, nil
}

func (m *MockScheduleStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockScheduleStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
