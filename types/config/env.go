package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env is the raw environment layout. Load converts it into a validated Config.
type Env struct {
	Instance string `envconfig:"INSTANCE" default:""`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Storage     StorageEnv
	Lock        LockEnv
	RabbitMQ    RabbitMQEnv
	Marketplace MarketplaceEnv
	OAuth       OAuthEnv
	Generator   GeneratorEnv
	Dispatcher  DispatcherEnv
	Serve       ServeEnv
}

type StorageEnv struct {
	Driver       string `envconfig:"STORAGE_DRIVER" default:"postgres"`
	PostgresURL  string `envconfig:"DATABASE_URL" default:""`
	MaxOpenConns int    `envconfig:"DATABASE_MAX_OPEN_CONNS" default:"10"`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"./data/listpilot.db"`
}

type LockEnv struct {
	Driver        string `envconfig:"LOCK_DRIVER" default:"storage"`
	RedisAddress  string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

type RabbitMQEnv struct {
	URL      string `envconfig:"RABBITMQ_URL" default:""`
	Exchange string `envconfig:"RABBITMQ_EXCHANGE" default:"listpilot.events"`
}

type MarketplaceEnv struct {
	Adapter        string        `envconfig:"MARKETPLACE_ADAPTER" default:"mock"`
	BaseURL        string        `envconfig:"MARKETPLACE_BASE_URL" default:""`
	UserAgent      string        `envconfig:"MARKETPLACE_USER_AGENT" default:"listpilot/1.0"`
	PublishTimeout time.Duration `envconfig:"MARKETPLACE_PUBLISH_TIMEOUT" default:"60s"`
}

type OAuthEnv struct {
	TokenURL       string        `envconfig:"OAUTH_TOKEN_URL" default:""`
	RefreshTimeout time.Duration `envconfig:"OAUTH_REFRESH_TIMEOUT" default:"10s"`
	ExpiryMargin   time.Duration `envconfig:"OAUTH_EXPIRY_MARGIN" default:"5m"`
	ClientID       string        `envconfig:"OAUTH_CLIENT_ID" default:""`
	ClientSecret   string        `envconfig:"OAUTH_CLIENT_SECRET" default:""`
	RefreshToken   string        `envconfig:"OAUTH_REFRESH_TOKEN" default:""`
}

type GeneratorEnv struct {
	Enabled            bool    `envconfig:"SCHEDULE_ENABLED" default:"true"`
	ItemsPerDayMin     int     `envconfig:"SCHEDULE_ITEMS_PER_DAY_MIN" default:"8"`
	ItemsPerDayMax     int     `envconfig:"SCHEDULE_ITEMS_PER_DAY_MAX" default:"15"`
	SessionsPerDayMin  int     `envconfig:"SCHEDULE_SESSIONS_PER_DAY_MIN" default:"2"`
	SessionsPerDayMax  int     `envconfig:"SCHEDULE_SESSIONS_PER_DAY_MAX" default:"4"`
	ItemIntervalMinSec int     `envconfig:"SCHEDULE_ITEM_INTERVAL_MIN_SEC" default:"120"`
	ItemIntervalMaxSec int     `envconfig:"SCHEDULE_ITEM_INTERVAL_MAX_SEC" default:"600"`
	PreferredHours     []int   `envconfig:"SCHEDULE_PREFERRED_HOURS" default:"9,11,13,16,19,21"`
	WeekdayMultiplier  float64 `envconfig:"SCHEDULE_WEEKDAY_MULTIPLIER" default:"1.0"`
	WeekendMultiplier  float64 `envconfig:"SCHEDULE_WEEKEND_MULTIPLIER" default:"0.7"`
	Marketplace        string  `envconfig:"SCHEDULE_MARKETPLACE" default:"default"`
	AccountID          string  `envconfig:"SCHEDULE_ACCOUNT_ID" default:"default"`
}

type DispatcherEnv struct {
	BatchLimit     int           `envconfig:"DISPATCHER_BATCH_LIMIT" default:"20"`
	InterItemDelay time.Duration `envconfig:"DISPATCHER_INTER_ITEM_DELAY" default:"0s"`
	StaleTimeout   time.Duration `envconfig:"DISPATCHER_STALE_TIMEOUT" default:"30m"`
	StaleAction    string        `envconfig:"DISPATCHER_STALE_ACTION" default:"error"`
}

type ServeEnv struct {
	GeneratorCron  string `envconfig:"SERVE_GENERATOR_CRON" default:"0 6 * * *"`
	DispatcherCron string `envconfig:"SERVE_DISPATCHER_CRON" default:"@every 5m"`
	OpsAddr        string `envconfig:"SERVE_OPS_ADDR" default:":8080"`
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return env.Build()
}

// Build validates the raw environment and converts it into a Config.
func (e Env) Build() (*Config, error) {
	instance := e.Instance
	if instance == "" {
		host, _ := os.Hostname()
		instance = host
	}
	if instance == "" {
		instance = "listpilot"
	}

	var opts []Option

	driver, err := ParseStorageDriver(e.Storage.Driver)
	if err != nil {
		return nil, err
	}
	switch driver {
	case Postgres:
		opts = append(opts, WithPostgresConfig(PostgresConfig{
			ConnectionUrl: e.Storage.PostgresURL,
			MaxOpenConns:  e.Storage.MaxOpenConns,
		}))
	case SQLite:
		opts = append(opts, WithSQLiteConfig(SQLiteConfig{Path: e.Storage.SQLitePath}))
	}

	lockDriver, err := ParseLockDriver(e.Lock.Driver)
	if err != nil {
		return nil, err
	}
	if lockDriver == LockRedis {
		opts = append(opts, WithRedisLock(RedisConfig{
			Address:  e.Lock.RedisAddress,
			Password: e.Lock.RedisPassword,
			DB:       e.Lock.RedisDB,
		}))
	} else {
		opts = append(opts, WithLockDriver(lockDriver))
	}

	if e.RabbitMQ.URL != "" {
		opts = append(opts, WithRabbitMQConfig(RabbitMQConfig{URL: e.RabbitMQ.URL, Exchange: e.RabbitMQ.Exchange}))
	}

	opts = append(opts,
		WithLogLevel(e.LogLevel),
		WithMarketplaceConfig(MarketplaceConfig{
			Adapter:        AdapterKind(e.Marketplace.Adapter),
			BaseURL:        e.Marketplace.BaseURL,
			UserAgent:      e.Marketplace.UserAgent,
			PublishTimeout: e.Marketplace.PublishTimeout,
		}),
		WithOAuthConfig(OAuthConfig{
			TokenURL:             e.OAuth.TokenURL,
			RefreshTimeout:       e.OAuth.RefreshTimeout,
			ExpiryMargin:         e.OAuth.ExpiryMargin,
			FallbackClientID:     e.OAuth.ClientID,
			FallbackClientSecret: e.OAuth.ClientSecret,
			FallbackRefreshToken: e.OAuth.RefreshToken,
		}),
		WithScheduleSettings(ScheduleSettings{
			Enabled:            e.Generator.Enabled,
			ItemsPerDayMin:     e.Generator.ItemsPerDayMin,
			ItemsPerDayMax:     e.Generator.ItemsPerDayMax,
			SessionsPerDayMin:  e.Generator.SessionsPerDayMin,
			SessionsPerDayMax:  e.Generator.SessionsPerDayMax,
			ItemIntervalMinSec: e.Generator.ItemIntervalMinSec,
			ItemIntervalMaxSec: e.Generator.ItemIntervalMaxSec,
			PreferredHours:     e.Generator.PreferredHours,
			WeekdayMultiplier:  e.Generator.WeekdayMultiplier,
			WeekendMultiplier:  e.Generator.WeekendMultiplier,
			Marketplace:        e.Generator.Marketplace,
			AccountID:          e.Generator.AccountID,
		}),
		WithDispatcherConfig(DispatcherConfig{
			BatchLimit:     e.Dispatcher.BatchLimit,
			InterItemDelay: e.Dispatcher.InterItemDelay,
			StaleTimeout:   e.Dispatcher.StaleTimeout,
			StaleAction:    StaleAction(e.Dispatcher.StaleAction),
		}),
		WithServeConfig(ServeConfig{
			GeneratorCron:  e.Serve.GeneratorCron,
			DispatcherCron: e.Serve.DispatcherCron,
			OpsAddr:        e.Serve.OpsAddr,
		}),
	)

	return NewConfig(instance, opts...)
}
