package store

import (
	"context"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/types"
)

// ScheduleStore persists schedule entries and enforces their state machine.
// Every status change is a conditional update on the source status, so two
// processes racing on one entry can never both win.
type ScheduleStore interface {
	// BulkInsert creates entries in SCHEDULED status in one transaction and
	// returns their ids in input order.
	BulkInsert(ctx context.Context, entries []types.NewScheduleEntry) ([]int64, error)

	// ItemsWithOpenEntries returns the subset of itemIDs that already have a
	// SCHEDULED or RUNNING entry.
	ItemsWithOpenEntries(ctx context.Context, itemIDs []int64) (map[int64]bool, error)

	// FetchDue returns up to limit SCHEDULED entries with scheduled_at <= now,
	// oldest first and higher priority first among equal times.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]types.ScheduleEntry, error)

	// Claim moves an entry from SCHEDULED to RUNNING and reports whether this
	// caller won it.
	Claim(ctx context.Context, id int64, claimedBy string, now time.Time) (bool, error)

	MarkCompleted(ctx context.Context, id int64, listingID string, now time.Time) error
	MarkError(ctx context.Context, id int64, errMsg string, now time.Time) error

	// ResetStale moves RUNNING entries started before olderThan to `to`
	// (SCHEDULED or ERROR) and returns how many were moved.
	ResetStale(ctx context.Context, olderThan time.Time, to state.ScheduleStatus, errMsg string, now time.Time) (int64, error)

	// Requeue moves an ERROR entry back to SCHEDULED.
	Requeue(ctx context.Context, id int64) (bool, error)

	FindByID(ctx context.Context, id int64) (*types.ScheduleEntry, error)

	CountGroupedByStatus(ctx context.Context) (map[state.ScheduleStatus]int, error)

	Ping(ctx context.Context) error

	// Close closes the database
	Close() error
}
