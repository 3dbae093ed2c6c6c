package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RezaEskandarii/listpilot/custom_errors"
	"github.com/RezaEskandarii/listpilot/internal/constants"
	"github.com/RezaEskandarii/listpilot/internal/marketplace"
	"github.com/RezaEskandarii/listpilot/internal/message_broaker"
	"github.com/RezaEskandarii/listpilot/internal/state"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/internal/token"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/RezaEskandarii/listpilot/types/config"
	"github.com/google/uuid"
)

// TokenProvider hands out bearer tokens per marketplace account.
type TokenProvider interface {
	GetAccessToken(ctx context.Context, accountID string) (string, error)
	InvalidateCache(accountID string)
}

// BatchResult summarises one dispatcher invocation. Errors holds per-entry
// failures for observability; none of them failed the batch.
type BatchResult struct {
	Processed int
	Completed int
	Failed    int
	// Skipped counts entries another dispatcher claimed first.
	Skipped int
	Errors  []error
}

// Dispatcher claims due schedule entries and publishes them, one at a time.
type Dispatcher struct {
	schedules store.ScheduleStore
	catalog   store.CatalogStore
	tokens    TokenProvider
	adapter   marketplace.Adapter
	broker    message_broaker.MessageBroker

	instance       string
	interItemDelay time.Duration
	staleTimeout   time.Duration
	staleAction    config.StaleAction

	logger *slog.Logger
	now    func() time.Time
}

type DispatcherOption func(*Dispatcher)

// WithInstance prefixes the claim owner recorded on entries.
func WithInstance(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.instance = name + "/" + d.instance
		}
	}
}

// WithBroker publishes a ListingEvent after every terminal transition.
func WithBroker(b message_broaker.MessageBroker) DispatcherOption {
	return func(d *Dispatcher) { d.broker = b }
}

func WithInterItemDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.interItemDelay = delay }
}

// WithStaleSweep enables the stale RUNNING sweep at the start of each batch.
// A zero timeout disables it.
func WithStaleSweep(timeout time.Duration, action config.StaleAction) DispatcherOption {
	return func(d *Dispatcher) {
		d.staleTimeout = timeout
		d.staleAction = action
	}
}

func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(schedules store.ScheduleStore, catalog store.CatalogStore, tokens TokenProvider, adapter marketplace.Adapter, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		schedules:   schedules,
		catalog:     catalog,
		tokens:      tokens,
		adapter:     adapter,
		instance:    uuid.NewString(),
		staleAction: config.DefaultStaleAction,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher", "instance", d.instance)
	return d
}

// Instance returns the claim owner this dispatcher stamps on entries.
func (d *Dispatcher) Instance() string {
	return d.instance
}

// RunDueSchedules claims and executes up to batchLimit due entries. Only
// batch-level failures and accounts without credentials are returned as an
// error; the result is non-nil whenever processing started. An account
// without credentials has its remaining entries left SCHEDULED while the
// other accounts carry on.
func (d *Dispatcher) RunDueSchedules(ctx context.Context, batchLimit int) (*BatchResult, error) {
	if batchLimit < 1 {
		return nil, fmt.Errorf("batch limit must be positive, got %d", batchLimit)
	}

	if d.staleTimeout > 0 {
		if _, err := d.SweepStale(ctx); err != nil {
			return nil, err
		}
	}

	due, err := d.schedules.FetchDue(ctx, d.now(), batchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch due schedules: %w", err)
	}

	result := &BatchResult{}
	if len(due) == 0 {
		d.logger.Debug("no due schedule entries")
		return result, nil
	}

	// accounts whose credentials are missing; their entries stay SCHEDULED
	blocked := make(map[string]bool)
	var accountErrs []error

	for i, entry := range due {
		if blocked[entry.AccountID] {
			d.logger.Debug("account has no credentials, leaving entry scheduled",
				"entry_id", entry.ID, "account_id", entry.AccountID)
			continue
		}
		if i > 0 && d.interItemDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.interItemDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			d.logger.Warn("dispatch interrupted", "remaining", len(due)-i)
			return result, err
		}

		if err := d.execute(ctx, entry, result); err != nil {
			blocked[entry.AccountID] = true
			accountErrs = append(accountErrs, err)
		}
	}

	d.logger.Info("dispatch batch finished",
		"due", len(due),
		"processed", result.Processed,
		"completed", result.Completed,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, errors.Join(accountErrs...)
}

// execute runs one entry. A returned error means no entry of the same
// account can succeed in this batch.
func (d *Dispatcher) execute(ctx context.Context, entry types.ScheduleEntry, result *BatchResult) error {
	log := d.logger.With("entry_id", entry.ID, "item_id", entry.ItemID, "account_id", entry.AccountID)

	claimed, err := d.schedules.Claim(ctx, entry.ID, d.instance, d.now())
	if err != nil {
		log.Warn("claim failed", "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("claim entry %d: %w", entry.ID, err))
		return nil
	}
	if !claimed {
		log.Debug("entry claimed by another dispatcher")
		result.Skipped++
		return nil
	}
	result.Processed++

	// a claimed entry must reach a terminal state even if ctx is cancelled
	markCtx := context.WithoutCancel(ctx)

	item, err := d.catalog.FindByID(ctx, entry.ItemID)
	if err != nil {
		msg := fmt.Sprintf("load catalog item %d: %v", entry.ItemID, err)
		if errors.Is(err, store.ErrNotFound) {
			msg = fmt.Sprintf("catalog item %d not found", entry.ItemID)
		}
		d.fail(markCtx, log, entry, nil, msg, result)
		return nil
	}

	if err := validateForPublish(item); err != nil {
		d.fail(markCtx, log, entry, item, "invalid catalog item: "+err.Error(), result)
		return nil
	}

	listing := marketplace.ListingFromItem(*item)
	for attempt := 1; attempt <= constants.MaxPublishAttempts; attempt++ {
		bearer, err := d.tokens.GetAccessToken(ctx, entry.AccountID)
		if err != nil {
			d.fail(markCtx, log, entry, item, "obtain access token: "+err.Error(), result)
			if errors.Is(err, token.ErrCredentialsMissing) {
				return fmt.Errorf("account %s: %w", entry.AccountID, err)
			}
			return nil
		}

		res, err := d.adapter.Publish(ctx, listing, bearer)
		if err == nil && res != nil && res.ExternalID != "" {
			d.complete(markCtx, log, entry, item, res.ExternalID, result)
			return nil
		}
		if err == nil {
			err = &marketplace.Failure{Kind: marketplace.KindUnknown, Message: "marketplace returned no listing id"}
		}

		if marketplace.KindOf(err) == marketplace.KindAuthInvalid && attempt < constants.MaxPublishAttempts {
			log.Warn("access token rejected, refreshing and retrying", "attempt", attempt)
			d.tokens.InvalidateCache(entry.AccountID)
			continue
		}

		d.fail(markCtx, log, entry, item, failureMessage(err), result)
		return nil
	}
	return nil
}

func (d *Dispatcher) complete(ctx context.Context, log *slog.Logger, entry types.ScheduleEntry, item *types.CatalogItem, externalID string, result *BatchResult) {
	now := d.now()
	if err := d.schedules.MarkCompleted(ctx, entry.ID, externalID, now); err != nil {
		log.Error("listing published but entry not marked completed", "listing_id", externalID, "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("mark entry %d completed: %w", entry.ID, err))
		return
	}
	if err := d.catalog.MarkListed(ctx, item.ID, externalID); err != nil {
		log.Error("entry completed but catalog item not marked listed", "listing_id", externalID, "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("mark item %d listed: %w", item.ID, err))
	}
	result.Completed++
	log.Info("listing published", "listing_id", externalID)

	d.emit(ctx, log, types.ListingEvent{
		EntryID:     entry.ID,
		ItemID:      entry.ItemID,
		AccountID:   entry.AccountID,
		Marketplace: entry.Marketplace,
		Status:      state.StatusCompleted,
		ListingID:   externalID,
		At:          now,
	}, result)
}

func (d *Dispatcher) fail(ctx context.Context, log *slog.Logger, entry types.ScheduleEntry, item *types.CatalogItem, msg string, result *BatchResult) {
	now := d.now()
	result.Failed++
	result.Errors = append(result.Errors, fmt.Errorf("entry %d: %s", entry.ID, msg))
	log.Warn("schedule entry failed", "reason", msg)

	if err := d.schedules.MarkError(ctx, entry.ID, msg, now); err != nil {
		log.Error("failed to mark entry as error", "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("mark entry %d error: %w", entry.ID, err))
		return
	}
	if item != nil {
		if err := d.catalog.MarkListingError(ctx, item.ID, msg); err != nil {
			log.Error("failed to record listing error on catalog item", "error", err)
		}
	}

	d.emit(ctx, log, types.ListingEvent{
		EntryID:     entry.ID,
		ItemID:      entry.ItemID,
		AccountID:   entry.AccountID,
		Marketplace: entry.Marketplace,
		Status:      state.StatusError,
		Error:       msg,
		At:          now,
	}, result)
}

func (d *Dispatcher) emit(ctx context.Context, log *slog.Logger, event types.ListingEvent, result *BatchResult) {
	if d.broker == nil {
		return
	}
	body, err := json.Marshal(event)
	if err == nil {
		err = d.broker.Publish(ctx, event.RoutingKey(), body)
	}
	if err != nil {
		log.Warn("failed to publish listing event", "routing_key", event.RoutingKey(), "error", err)
		result.Errors = append(result.Errors, fmt.Errorf("publish event for entry %d: %w", event.EntryID, err))
	}
}

// SweepStale resolves RUNNING entries whose claim is older than the stale
// timeout. It returns how many entries were moved.
func (d *Dispatcher) SweepStale(ctx context.Context) (int64, error) {
	if d.staleTimeout <= 0 {
		return 0, nil
	}
	now := d.now()
	to := state.StatusError
	if d.staleAction == config.StaleToRequeue {
		to = state.StatusScheduled
	}
	msg := fmt.Sprintf("claim expired after %s", d.staleTimeout)

	n, err := d.schedules.ResetStale(ctx, now.Add(-d.staleTimeout), to, msg, now)
	if err != nil {
		return 0, fmt.Errorf("sweep stale claims: %w", err)
	}
	if n > 0 {
		d.logger.Warn("stale claims resolved", "count", n, "to", to, "timeout", d.staleTimeout)
	}
	return n, nil
}

// Requeue moves an ERROR entry back to SCHEDULED so the next batch retries it.
func (d *Dispatcher) Requeue(ctx context.Context, id int64) error {
	ok, err := d.schedules.Requeue(ctx, id)
	if err != nil {
		return fmt.Errorf("requeue entry %d: %w", id, err)
	}
	if ok {
		d.logger.Info("entry requeued", "entry_id", id)
		return nil
	}

	entry, err := d.schedules.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("requeue entry %d: %w", id, err)
	}
	if entry == nil {
		return fmt.Errorf("requeue entry %d: %w", id, store.ErrNotFound)
	}
	return fmt.Errorf("requeue entry %d: %w: status is %s", id, store.ErrInvalidTransition, entry.Status)
}

// validateForPublish checks the fields every marketplace requires.
func validateForPublish(item *types.CatalogItem) error {
	v := &custom_errors.ValidationError{}
	if item.SKU == "" {
		v.Addf("sku is missing")
	}
	if item.CategoryCode == "" {
		v.Addf("category code is missing")
	}
	if item.PriceCents <= 0 {
		v.Addf("price is missing")
	}
	if item.Condition == "" {
		v.Addf("condition is missing")
	}
	if len(item.Images) == 0 {
		v.Addf("at least one image is required")
	}
	return v.Err()
}

func failureMessage(err error) string {
	var f *marketplace.Failure
	if errors.As(err, &f) && f.Message != "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return err.Error()
}
