package types

import (
	"time"

	"github.com/RezaEskandarii/listpilot/internal/state"
)

// ListingEvent is published after a schedule entry reaches a terminal state.
type ListingEvent struct {
	EntryID     int64                `json:"entry_id"`
	ItemID      int64                `json:"item_id"`
	AccountID   string               `json:"account_id"`
	Marketplace string               `json:"marketplace"`
	Status      state.ScheduleStatus `json:"status"`
	ListingID   string               `json:"listing_id,omitempty"`
	Error       string               `json:"error,omitempty"`
	At          time.Time            `json:"at"`
}

// RoutingKey returns the broker routing key for the event.
func (e ListingEvent) RoutingKey() string {
	if e.Status == state.StatusCompleted {
		return "listing.completed"
	}
	return "listing.error"
}
