package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/RezaEskandarii/listpilot/types"
	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

type entryResponse struct {
	ID           int64      `json:"id"`
	ItemID       int64      `json:"item_id"`
	Marketplace  string     `json:"marketplace"`
	AccountID    string     `json:"account_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	ListingID    *string    `json:"listing_id,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	ClaimedBy    *string    `json:"claimed_by,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newEntryResponse(e *types.ScheduleEntry) entryResponse {
	return entryResponse{
		ID:           e.ID,
		ItemID:       e.ItemID,
		Marketplace:  e.Marketplace,
		AccountID:    e.AccountID,
		ScheduledAt:  e.ScheduledAt,
		Status:       e.Status.String(),
		Priority:     e.Priority,
		ListingID:    e.ListingID,
		ErrorMessage: e.ErrorMessage,
		ClaimedBy:    e.ClaimedBy,
		StartedAt:    e.StartedAt,
		CompletedAt:  e.CompletedAt,
		CreatedAt:    e.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// entryID reads the {id} URL parameter.
func entryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid schedule id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func printBanner(addr string) {
	width := 46
	fmt.Println("##############################################")
	fmt.Printf("# %-*s #\n", width-4, "")
	fmt.Printf("# %-*s #\n", width-4, "listpilot started")
	fmt.Printf("# %-*s #\n", width-4, fmt.Sprintf("ops API listening on %s", addr))
	fmt.Printf("# %-*s #\n", width-4, "")
	fmt.Println("##############################################")
}
