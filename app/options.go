package app

import (
	"database/sql"
	"log/slog"

	"github.com/RezaEskandarii/listpilot/internal/marketplace"
	"github.com/redis/go-redis/v9"
)

// ContainerOption configures Container creation. Used for testing and customization.
type ContainerOption func(*containerConfig)

type containerConfig struct {
	// Optional: inject custom connections instead of creating them from config
	db      *sql.DB
	redis   *redis.Client
	logger  *slog.Logger
	adapter marketplace.Adapter
}

// WithDB injects a custom database connection. Useful for testing.
func WithDB(db *sql.DB) ContainerOption {
	return func(c *containerConfig) {
		c.db = db
	}
}

// WithRedis injects a custom Redis client. Useful for testing.
func WithRedis(redis *redis.Client) ContainerOption {
	return func(c *containerConfig) {
		c.redis = redis
	}
}

func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *containerConfig) {
		c.logger = logger
	}
}

// WithAdapter replaces the configured marketplace adapter.
func WithAdapter(a marketplace.Adapter) ContainerOption {
	return func(c *containerConfig) {
		c.adapter = a
	}
}
