package types

import (
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
)

// ScheduleEntry is one intended future publish action for one catalog item.
type ScheduleEntry struct {
	ID           int64
	ItemID       int64
	Marketplace  string
	AccountID    string
	ScheduledAt  time.Time
	Status       state.ScheduleStatus
	Priority     int
	ListingID    *string
	ErrorMessage *string
	ClaimedBy    *string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// NewScheduleEntry is the generator's insert payload.
type NewScheduleEntry struct {
	ItemID      int64
	Marketplace string
	AccountID   string
	ScheduledAt time.Time
	Priority    int
}
