package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/internal/marketplace"
	"github.com/RezaEskandarii/listpilot/internal/store"
	"github.com/RezaEskandarii/listpilot/internal/store/postgres"
	"github.com/RezaEskandarii/listpilot/internal/store/sqlite"
	"github.com/RezaEskandarii/listpilot/types/config"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	schedules   store.ScheduleStore
	catalog     store.CatalogStore
	credentials store.CredentialStore
}

func createStores(driver config.StorageDriver, db *sql.DB) (stores, error) {
	switch driver {
	case config.Postgres:
		return stores{
			schedules:   postgres.NewPostgresScheduleStore(db),
			catalog:     postgres.NewPostgresCatalogStore(db),
			credentials: postgres.NewPostgresCredentialStore(db),
		}, nil
	case config.SQLite:
		return stores{
			schedules:   sqlite.NewSQLiteScheduleStore(db),
			catalog:     sqlite.NewSQLiteCatalogStore(db),
			credentials: sqlite.NewSQLiteCredentialStore(db),
		}, nil
	}
	return stores{}, fmt.Errorf("unsupported storage driver: %s", driver)
}

func createDistributedLockManager(cfg *config.Config, db *sql.DB, redisClient *redis.Client) lock.DistributedLockManager {
	switch cfg.LockDriver {
	case config.LockRedis:
		return lock.NewRedisLockManager(redisClient, 0)
	case config.LockLocal:
		return lock.NewLocalLockManager()
	}
	if cfg.StorageDriver == config.Postgres {
		return lock.NewPostgresDistributedLockManager(db)
	}
	// a SQLite file has a single writer host
	return lock.NewLocalLockManager()
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Address, err)
	}
	return client, nil
}

func createAdapter(cfg config.MarketplaceConfig) (marketplace.Adapter, error) {
	switch cfg.Adapter {
	case config.AdapterHTTP:
		return marketplace.NewHTTPAdapter(marketplace.HTTPAdapterOptions{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.PublishTimeout,
		})
	case config.AdapterMock, "":
		return marketplace.NewMockAdapter(), nil
	}
	return nil, fmt.Errorf("unknown marketplace adapter %q", cfg.Adapter)
}
