package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/RezaEskandarii/listpilot/custom_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageDriver_String(t *testing.T) {
	tests := []struct {
		name     string
		driver   StorageDriver
		expected string
	}{
		{name: "Postgres driver", driver: Postgres, expected: "postgres"},
		{name: "SQLite driver", driver: SQLite, expected: "sqlite"},
		{name: "Unknown driver", driver: StorageDriver(999), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.driver.String()
			if result != tt.expected {
				t.Errorf("String() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig("test-instance")
	require.NoError(t, err)

	assert.Equal(t, "test-instance", cfg.Instance)
	assert.Equal(t, DefaultStorageDriver, cfg.StorageDriver)
	assert.Equal(t, DefaultLockDriver, cfg.LockDriver)
	assert.Equal(t, DefaultBatchLimit, cfg.Dispatcher.BatchLimit)
	assert.Equal(t, DefaultExpiryMargin, cfg.OAuthConfig.ExpiryMargin)
	assert.Equal(t, AdapterMock, cfg.MarketplaceConfig.Adapter)
	assert.Nil(t, cfg.RabbitMQConfig)
	assert.True(t, cfg.Schedule.Enabled)
}

func TestNewConfig_AggregatesValidationErrors(t *testing.T) {
	_, err := NewConfig("",
		WithPostgresConfig(PostgresConfig{}),
		WithDispatcherConfig(DispatcherConfig{BatchLimit: 0}),
		WithLogLevel("loud"),
	)
	require.Error(t, err)
	assert.True(t, custom_errors.IsValidationError(err))

	var v *custom_errors.ValidationError
	require.ErrorAs(t, err, &v)
	assert.Len(t, v.Errors, 4)
}

func TestWithSQLiteConfig_SwitchesDriver(t *testing.T) {
	cfg, err := NewConfig("x", WithSQLiteConfig(SQLiteConfig{Path: "/tmp/a.db"}))
	require.NoError(t, err)
	assert.Equal(t, SQLite, cfg.StorageDriver)
	assert.Equal(t, "/tmp/a.db", cfg.SQLiteConfig.Path)
}

func TestWithOAuthConfig_PartialFallbackRejected(t *testing.T) {
	_, err := NewConfig("x", WithOAuthConfig(OAuthConfig{
		TokenURL:             "https://auth.example/token",
		FallbackClientID:     "id",
		FallbackRefreshToken: "rt",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestWithOAuthConfig_FillsDefaults(t *testing.T) {
	cfg, err := NewConfig("x", WithOAuthConfig(OAuthConfig{TokenURL: "https://auth.example/token"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultRefreshTimeout, cfg.OAuthConfig.RefreshTimeout)
	assert.Equal(t, DefaultExpiryMargin, cfg.OAuthConfig.ExpiryMargin)
	assert.False(t, cfg.OAuthConfig.HasFallback())
}

func TestWithMarketplaceConfig(t *testing.T) {
	_, err := NewConfig("x", WithMarketplaceConfig(MarketplaceConfig{Adapter: AdapterHTTP}))
	assert.Error(t, err)

	_, err = NewConfig("x", WithMarketplaceConfig(MarketplaceConfig{Adapter: "ftp"}))
	assert.Error(t, err)

	cfg, err := NewConfig("x", WithMarketplaceConfig(MarketplaceConfig{Adapter: AdapterHTTP, BaseURL: "https://mp.example"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultPublishTimeout, cfg.MarketplaceConfig.PublishTimeout)
}

func TestWithServeConfig_RejectsBadCron(t *testing.T) {
	_, err := NewConfig("x", WithServeConfig(ServeConfig{GeneratorCron: "not a cron", DispatcherCron: "@every 5m"}))
	assert.Error(t, err)

	_, err = NewConfig("x", WithServeConfig(ServeConfig{GeneratorCron: "0 6 * * *", DispatcherCron: "@every 5m"}))
	assert.NoError(t, err)
}

func TestWithLockDriver_RedisNeedsAddress(t *testing.T) {
	_, err := NewConfig("x", WithLockDriver(LockRedis))
	assert.Error(t, err)

	cfg, err := NewConfig("x", WithRedisLock(RedisConfig{Address: "localhost:6379"}))
	require.NoError(t, err)
	assert.Equal(t, LockRedis, cfg.LockDriver)
}

func TestWithLogLevel(t *testing.T) {
	cfg, err := NewConfig("x", WithLogLevel("debug"))
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestScheduleSettings_Normalized(t *testing.T) {
	s := ScheduleSettings{
		ItemsPerDayMin:     10,
		ItemsPerDayMax:     4,
		SessionsPerDayMin:  3,
		SessionsPerDayMax:  1,
		ItemIntervalMinSec: 300,
		ItemIntervalMaxSec: 60,
		PreferredHours:     []int{14, 10, 25, -1, 10},
	}.Normalized()

	assert.Equal(t, 10, s.ItemsPerDayMax)
	assert.Equal(t, 3, s.SessionsPerDayMax)
	assert.Equal(t, 300, s.ItemIntervalMaxSec)
	assert.Equal(t, []int{10, 14}, s.PreferredHours)
	assert.Equal(t, 1.0, s.WeekdayMultiplier)
	assert.Equal(t, DefaultAccountID, s.AccountID)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("INSTANCE", "node-a")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/listpilot-test.db")
	t.Setenv("OAUTH_TOKEN_URL", "https://auth.example/token")
	t.Setenv("SCHEDULE_PREFERRED_HOURS", "10,14")
	t.Setenv("DISPATCHER_STALE_TIMEOUT", "45m")
	t.Setenv("DISPATCHER_STALE_ACTION", "requeue")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "node-a", cfg.Instance)
	assert.Equal(t, SQLite, cfg.StorageDriver)
	assert.Equal(t, []int{10, 14}, cfg.Schedule.PreferredHours)
	assert.Equal(t, 45*time.Minute, cfg.Dispatcher.StaleTimeout)
	assert.Equal(t, StaleToRequeue, cfg.Dispatcher.StaleAction)
	assert.Equal(t, LockStorage, cfg.LockDriver)
}

func TestLoad_PostgresWithoutURLFails(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OAUTH_TOKEN_URL", "https://auth.example/token")

	_, err := Load()
	assert.Error(t, err)
}
