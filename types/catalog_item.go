package types

const (
	ApprovalApproved   = "approved"
	ApprovalUnapproved = "unapproved"

	ScheduleStateScheduled = "scheduled"

	ListingStateActive = "active"
	ListingStateError  = "error"
)

// CatalogItem carries the narrow set of catalog fields the scheduler and
// dispatcher read. Zero values mean the field is missing.
type CatalogItem struct {
	ID           int64
	SKU          string
	Title        string
	Description  string
	CategoryCode string
	PriceCents   int64
	Currency     string
	Condition    string
	Images       []string
	Quantity     int
	RankScore    *float64

	ApprovalState     string
	ScheduleState     *string
	ListingState      *string
	ExternalListingID *string
}
