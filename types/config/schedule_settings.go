package config

import "sort"

// ScheduleSettings drives one run of the schedule generator.
type ScheduleSettings struct {
	Enabled bool

	ItemsPerDayMin int
	ItemsPerDayMax int

	SessionsPerDayMin int
	SessionsPerDayMax int

	ItemIntervalMinSec int
	ItemIntervalMaxSec int

	// PreferredHours are local hours of day (0-23) a session may start in.
	PreferredHours []int

	WeekdayMultiplier float64
	WeekendMultiplier float64

	// Marketplace and AccountID are stamped on every generated entry.
	Marketplace string
	AccountID   string
}

// Normalized returns a copy with inverted ranges clamped, out-of-range hours
// dropped and duplicates removed. Misconfiguration never makes the generator
// fail; it only narrows what it produces.
func (s ScheduleSettings) Normalized() ScheduleSettings {
	out := s

	if out.ItemsPerDayMin < 1 {
		out.ItemsPerDayMin = 1
	}
	if out.ItemsPerDayMax < out.ItemsPerDayMin {
		out.ItemsPerDayMax = out.ItemsPerDayMin
	}
	if out.SessionsPerDayMin < 1 {
		out.SessionsPerDayMin = 1
	}
	if out.SessionsPerDayMax < out.SessionsPerDayMin {
		out.SessionsPerDayMax = out.SessionsPerDayMin
	}
	if out.ItemIntervalMinSec < 0 {
		out.ItemIntervalMinSec = 0
	}
	if out.ItemIntervalMaxSec < out.ItemIntervalMinSec {
		out.ItemIntervalMaxSec = out.ItemIntervalMinSec
	}
	if out.WeekdayMultiplier <= 0 {
		out.WeekdayMultiplier = 1
	}
	if out.WeekendMultiplier <= 0 {
		out.WeekendMultiplier = 1
	}
	if out.Marketplace == "" {
		out.Marketplace = DefaultMarketplace
	}
	if out.AccountID == "" {
		out.AccountID = DefaultAccountID
	}

	seen := make(map[int]bool, len(s.PreferredHours))
	hours := make([]int, 0, len(s.PreferredHours))
	for _, h := range s.PreferredHours {
		if h < 0 || h > 23 || seen[h] {
			continue
		}
		seen[h] = true
		hours = append(hours, h)
	}
	sort.Ints(hours)
	out.PreferredHours = hours

	return out
}
