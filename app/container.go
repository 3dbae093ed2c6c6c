package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/RezaEskandarii/listpilot/client"
	"github.com/RezaEskandarii/listpilot/internal/db"
	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/internal/marketplace"
	"github.com/RezaEskandarii/listpilot/internal/message_broaker"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/internal/token"
	"github.com/RezaEskandarii/listpilot/types/config"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies. It is the single source of truth
// for dependency injection and ensures connections and services are created once.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage connections (created once, shared by all stores)
	DB    *sql.DB
	Redis *redis.Client

	// Stores (implement interfaces for testability)
	ScheduleStore   store.ScheduleStore
	CatalogStore    store.CatalogStore
	CredentialStore store.CredentialStore

	// Infrastructure
	LockManager   lock.DistributedLockManager
	MessageBroker message_broaker.MessageBroker
	TokenManager  *token.Manager
	Adapter       marketplace.Adapter

	Generator  *client.ScheduleGenerator
	Dispatcher *client.Dispatcher

	ownsDB    bool
	ownsRedis bool
}

// NewContainer creates and wires all dependencies and applies pending
// migrations. Call this once per process.
// Pass optional WithDB, WithRedis to inject connections for testing.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (_ *Container, err error) {
	opt := &containerConfig{}
	for _, o := range opts {
		o(opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	c.DB = opt.db
	if c.DB == nil {
		if c.DB, err = db.Open(ctx, cfg); err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		c.ownsDB = true
	}

	if cfg.LockDriver == config.LockRedis {
		c.Redis = opt.redis
		if c.Redis == nil {
			if c.Redis, err = openRedis(ctx, cfg.RedisConfig); err != nil {
				return nil, fmt.Errorf("init redis: %w", err)
			}
			c.ownsRedis = true
		}
	}

	c.LockManager = createDistributedLockManager(cfg, c.DB, c.Redis)

	if err = db.Init(ctx, c.DB, cfg.StorageDriver, c.LockManager, logger); err != nil {
		return nil, err
	}

	s, err := createStores(cfg.StorageDriver, c.DB)
	if err != nil {
		return nil, err
	}
	c.ScheduleStore, c.CatalogStore, c.CredentialStore = s.schedules, s.catalog, s.credentials

	if cfg.RabbitMQConfig != nil {
		broker, err := message_broaker.NewRabbitMQ(cfg.RabbitMQConfig.URL, cfg.RabbitMQConfig.Exchange)
		if err != nil {
			return nil, fmt.Errorf("init rabbitmq: %w", err)
		}
		c.MessageBroker = broker
	}

	c.Adapter = opt.adapter
	if c.Adapter == nil {
		if c.Adapter, err = createAdapter(cfg.MarketplaceConfig); err != nil {
			return nil, fmt.Errorf("init marketplace adapter: %w", err)
		}
	}

	oauth := cfg.OAuthConfig
	tokenOpts := []token.Option{
		token.WithExpiryMargin(oauth.ExpiryMargin),
		token.WithLogger(logger),
	}
	if oauth.HasFallback() {
		tokenOpts = append(tokenOpts, token.WithFallback(token.Fallback{
			ClientID:     oauth.FallbackClientID,
			ClientSecret: oauth.FallbackClientSecret,
			RefreshToken: oauth.FallbackRefreshToken,
		}))
	}
	c.TokenManager = token.NewManager(
		c.CredentialStore,
		token.NewOAuth2Refresher(oauth.TokenURL, oauth.RefreshTimeout, nil),
		tokenOpts...,
	)

	c.Generator = client.NewScheduleGenerator(c.ScheduleStore, c.CatalogStore,
		client.WithGeneratorLock(c.LockManager),
		client.WithGeneratorLogger(logger),
	)

	dispatcherOpts := []client.DispatcherOption{
		client.WithInstance(cfg.Instance),
		client.WithInterItemDelay(cfg.Dispatcher.InterItemDelay),
		client.WithStaleSweep(cfg.Dispatcher.StaleTimeout, cfg.Dispatcher.StaleAction),
		client.WithDispatcherLogger(logger),
	}
	if c.MessageBroker != nil {
		dispatcherOpts = append(dispatcherOpts, client.WithBroker(c.MessageBroker))
	}
	c.Dispatcher = client.NewDispatcher(c.ScheduleStore, c.CatalogStore, c.TokenManager, c.Adapter, dispatcherOpts...)

	logger.Info("container ready",
		"instance", cfg.Instance,
		"storage", cfg.StorageDriver.String(),
		"lock", cfg.LockDriver.String(),
		"adapter", cfg.MarketplaceConfig.Adapter,
		"events", c.MessageBroker != nil,
	)
	return c, nil
}

// Close releases the connections the container opened itself.
func (c *Container) Close() error {
	var errs []error
	if c.MessageBroker != nil {
		errs = append(errs, c.MessageBroker.Close())
	}
	if c.ownsRedis && c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.ownsDB && c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
