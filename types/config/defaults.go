package config

import "time"

const (
	DefaultStorageDriver = Postgres
	DefaultLockDriver    = LockStorage
	DefaultSQLitePath    = "./data/listpilot.db"

	DefaultBatchLimit       = 20
	DefaultPublishTimeout   = 60 * time.Second
	DefaultRefreshTimeout   = 10 * time.Second
	DefaultExpiryMargin     = 5 * time.Minute
	DefaultStaleTimeout     = 30 * time.Minute
	DefaultStaleAction      = StaleToError
	DefaultMarketplace      = "default"
	DefaultAccountID        = "default"
	DefaultGeneratorCron    = "0 6 * * *"
	DefaultDispatcherCron   = "@every 5m"
	DefaultOpsAddr          = ":8080"
	DefaultRabbitMQExchange = "listpilot.events"
)

// DefaultScheduleSettings mirrors a conservative human-like publishing pace.
func DefaultScheduleSettings() ScheduleSettings {
	return ScheduleSettings{
		Enabled:            true,
		ItemsPerDayMin:     8,
		ItemsPerDayMax:     15,
		SessionsPerDayMin:  2,
		SessionsPerDayMax:  4,
		ItemIntervalMinSec: 120,
		ItemIntervalMaxSec: 600,
		PreferredHours:     []int{9, 11, 13, 16, 19, 21},
		WeekdayMultiplier:  1.0,
		WeekendMultiplier:  0.7,
		Marketplace:        DefaultMarketplace,
		AccountID:          DefaultAccountID,
	}
}
