// Package marketplace defines the publish contract with an external
// marketplace and the adapters implementing it.
package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/RezaEskandarii/listpilot/types"
)

type FailureKind string

const (
	// KindAuthInvalid means the bearer token was rejected; a fresh token may succeed.
	KindAuthInvalid FailureKind = "AUTH_INVALID"
	KindValidation  FailureKind = "VALIDATION"
	KindTransient   FailureKind = "TRANSIENT"
	KindUnknown     FailureKind = "UNKNOWN"
)

// Failure is a classified publish failure.
type Failure struct {
	Kind       FailureKind
	Message    string
	StatusCode int
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.StatusCode, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// KindOf returns the failure kind of err, or KindUnknown when err is not a
// *Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

// Listing is the publish payload.
type Listing struct {
	SKU          string   `json:"sku"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	CategoryCode string   `json:"category_code"`
	PriceCents   int64    `json:"price_cents"`
	Currency     string   `json:"currency"`
	Condition    string   `json:"condition"`
	Images       []string `json:"images"`
	Quantity     int      `json:"quantity"`
}

// ListingFromItem builds the payload for a catalog item.
func ListingFromItem(item types.CatalogItem) Listing {
	qty := item.Quantity
	if qty < 1 {
		qty = 1
	}
	currency := item.Currency
	if currency == "" {
		currency = "USD"
	}
	return Listing{
		SKU:          item.SKU,
		Title:        item.Title,
		Description:  item.Description,
		CategoryCode: item.CategoryCode,
		PriceCents:   item.PriceCents,
		Currency:     currency,
		Condition:    item.Condition,
		Images:       item.Images,
		Quantity:     qty,
	}
}

type PublishResult struct {
	ExternalID string
}

// Adapter publishes one listing. Failures are returned as *Failure.
type Adapter interface {
	Publish(ctx context.Context, listing Listing, bearerToken string) (*PublishResult, error)
}
