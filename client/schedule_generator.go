package client

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/RezaEskandarii/listpilot/internal/constants"
	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/types"
	"github.com/RezaEskandarii/listpilot/types/config"
)

// ScheduleGenerator turns approved, unscheduled catalog items into a day of
// schedule entries spread over a few human-looking sessions.
type ScheduleGenerator struct {
	schedules store.ScheduleStore
	catalog   store.CatalogStore
	lock      lock.DistributedLockManager
	logger    *slog.Logger
	now       func() time.Time
	rng       *rand.Rand
}

type GeneratorOption func(*ScheduleGenerator)

// WithGeneratorLock serialises generator runs across processes. Without it a
// second concurrent run relies on ItemsWithOpenEntries alone.
func WithGeneratorLock(l lock.DistributedLockManager) GeneratorOption {
	return func(g *ScheduleGenerator) { g.lock = l }
}

func WithGeneratorLogger(l *slog.Logger) GeneratorOption {
	return func(g *ScheduleGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *ScheduleGenerator) { g.now = now }
}

// WithRand sets the random source. A seeded source makes a run reproducible.
func WithRand(r *rand.Rand) GeneratorOption {
	return func(g *ScheduleGenerator) { g.rng = r }
}

func NewScheduleGenerator(schedules store.ScheduleStore, catalog store.CatalogStore, opts ...GeneratorOption) *ScheduleGenerator {
	g := &ScheduleGenerator{
		schedules: schedules,
		catalog:   catalog,
		logger:    slog.Default(),
		now:       time.Now,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "schedule_generator")
	return g
}

// candidate is an eligible item with its position in rank order.
type candidate struct {
	item types.CatalogItem
	rank int
}

// GenerateDailySchedule creates the schedule entries for the next publishing
// day and returns how many it created.
func (g *ScheduleGenerator) GenerateDailySchedule(ctx context.Context, settings config.ScheduleSettings) (int, error) {
	if !settings.Enabled {
		g.logger.Info("schedule generation disabled")
		return 0, nil
	}

	s := settings.Normalized()
	if len(s.PreferredHours) == 0 {
		g.logger.Warn("no preferred hours configured, nothing to schedule")
		return 0, nil
	}

	if g.lock != nil {
		ok, err := g.lock.TryAcquire(ctx, constants.GeneratorLock)
		if err != nil {
			return 0, fmt.Errorf("acquire generator lock: %w", err)
		}
		if !ok {
			g.logger.Info("another generator run holds the lock, skipping")
			return 0, nil
		}
		defer func() {
			if err := g.lock.Release(context.WithoutCancel(ctx), constants.GeneratorLock); err != nil {
				g.logger.Error("failed to release generator lock", "error", err)
			}
		}()
	}

	now := g.now()

	eligible, err := g.loadCandidates(ctx, s.ItemsPerDayMax*constants.CandidateMultiplier)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		g.logger.Info("no schedulable catalog items")
		return 0, nil
	}

	hours, day := availableHours(s.PreferredHours, now)
	target := g.dailyTarget(s, day, len(eligible))
	picked := interleaveByCategory(eligible[:target])
	sessions := g.pickSessions(hours, s.SessionsPerDayMin, s.SessionsPerDayMax, target)
	sizes := g.partition(target, len(sessions))

	entries := make([]types.NewScheduleEntry, 0, target)
	next := 0
	for i, hour := range sessions {
		cursor := time.Date(day.Year(), day.Month(), day.Day(), hour, g.rng.IntN(30), 0, 0, day.Location())
		for j := 0; j < sizes[i]; j++ {
			c := picked[next]
			next++
			entries = append(entries, types.NewScheduleEntry{
				ItemID:      c.item.ID,
				Marketplace: s.Marketplace,
				AccountID:   s.AccountID,
				ScheduledAt: cursor,
				Priority:    target - c.rank,
			})
			cursor = cursor.Add(time.Duration(g.uniform(s.ItemIntervalMinSec, s.ItemIntervalMaxSec)) * time.Second)
		}
	}

	if _, err := g.schedules.BulkInsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("insert schedule entries: %w", err)
	}

	itemIDs := make([]int64, len(entries))
	for i, e := range entries {
		itemIDs[i] = e.ItemID
	}
	if err := g.catalog.MarkScheduled(ctx, itemIDs); err != nil {
		// entries exist; the open-entry check keeps the next run from duplicating them
		g.logger.Error("schedule entries created but catalog items not marked scheduled",
			"item_ids", itemIDs, "error", err)
	}

	g.logger.Info("daily schedule generated",
		"entries", len(entries),
		"sessions", sessions,
		"day", day.Format(time.DateOnly),
		"candidates", len(eligible),
	)
	return len(entries), nil
}

// loadCandidates returns schedulable items in rank order, dropping any item
// that already has an open entry.
func (g *ScheduleGenerator) loadCandidates(ctx context.Context, limit int) ([]candidate, error) {
	items, err := g.catalog.ListApprovedUnscheduled(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	open, err := g.schedules.ItemsWithOpenEntries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check open entries: %w", err)
	}

	out := make([]candidate, 0, len(items))
	for _, it := range items {
		if open[it.ID] {
			g.logger.Debug("item already has an open entry", "item_id", it.ID)
			continue
		}
		if it.CategoryCode == "" {
			continue
		}
		out = append(out, candidate{item: it, rank: len(out)})
	}
	return out, nil
}

// dailyTarget draws the item count for day, capped at the candidate count.
func (g *ScheduleGenerator) dailyTarget(s config.ScheduleSettings, day time.Time, available int) int {
	mult := s.WeekdayMultiplier
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		mult = s.WeekendMultiplier
	}
	target := int(math.Round(float64(g.uniform(s.ItemsPerDayMin, s.ItemsPerDayMax)) * mult))
	if target < 1 {
		target = 1
	}
	return min(target, available)
}

// pickSessions chooses distinct start hours, ascending. Never more sessions
// than items.
func (g *ScheduleGenerator) pickSessions(hours []int, minSessions, maxSessions, items int) []int {
	hi := min(maxSessions, len(hours), items)
	lo := min(minSessions, hi)
	count := g.uniform(lo, hi)

	chosen := make([]int, 0, count)
	for _, idx := range g.rng.Perm(len(hours))[:count] {
		chosen = append(chosen, hours[idx])
	}
	slices.Sort(chosen)
	return chosen
}

// partition splits total across sessions. Each session but the last gets an
// even share jittered by [0.7, 1.3] and clamped so later sessions keep at
// least one item; the last takes the rest.
func (g *ScheduleGenerator) partition(total, sessions int) []int {
	sizes := make([]int, sessions)
	remaining := total
	for i := 0; i < sessions-1; i++ {
		left := sessions - i
		share := remaining / left
		n := int(math.Round(float64(share) * (0.7 + 0.6*g.rng.Float64())))
		n = max(1, min(n, remaining-(left-1)))
		sizes[i] = n
		remaining -= n
	}
	sizes[sessions-1] = remaining
	return sizes
}

// uniform returns an int in [lo, hi].
func (g *ScheduleGenerator) uniform(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

// availableHours returns the preferred hours still ahead today, or all of
// them for tomorrow when none are left. hours must be sorted.
func availableHours(hours []int, now time.Time) ([]int, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var future []int
	for _, h := range hours {
		if h > now.Hour() {
			future = append(future, h)
		}
	}
	if len(future) > 0 {
		return future, today
	}
	return hours, today.AddDate(0, 0, 1)
}

// interleaveByCategory reorders items so adjacent picks differ in category
// whenever a different category remains. Picks the earliest such item, or
// the head when only one category is left.
func interleaveByCategory(items []candidate) []candidate {
	remaining := slices.Clone(items)
	out := make([]candidate, 0, len(items))
	prev := ""
	for len(remaining) > 0 {
		idx := 0
		for i, c := range remaining {
			if c.item.CategoryCode != prev {
				idx = i
				break
			}
		}
		out = append(out, remaining[idx])
		prev = remaining[idx].item.CategoryCode
		remaining = slices.Delete(remaining, idx, idx+1)
	}
	return out
}
