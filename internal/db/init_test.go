package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/types/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLockManager struct {
	acquireErr error
	releaseErr error
	acquired   []int
	released   []int
}

func (m *mockLockManager) Acquire(_ context.Context, lockID int) error {
	m.acquired = append(m.acquired, lockID)
	return m.acquireErr
}

func (m *mockLockManager) TryAcquire(_ context.Context, lockID int) (bool, error) {
	m.acquired = append(m.acquired, lockID)
	return m.acquireErr == nil, m.acquireErr
}

func (m *mockLockManager) Release(_ context.Context, lockID int) error {
	m.released = append(m.released, lockID)
	return m.releaseErr
}

var _ lock.DistributedLockManager = (*mockLockManager)(nil)

func TestReadSQLScripts(t *testing.T) {
	for _, dir := range []string{"migrations/postgres", "migrations/sqlite"} {
		scripts, err := readSQLScripts(dir)
		require.NoError(t, err)
		require.Len(t, scripts, 3, dir)
		assert.Equal(t, "0001_catalog_items", scripts[0].version)
		assert.Equal(t, "0003_marketplace_credentials", scripts[2].version)
		for _, s := range scripts {
			assert.NotEmpty(t, s.statements)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestInit_LockAcquireFails(t *testing.T) {
	lockMgr := &mockLockManager{acquireErr: errors.New("lock busy")}

	err := Init(context.Background(), nil, config.SQLite, lockMgr, nil)
	assert.Error(t, err)
	assert.Empty(t, lockMgr.released)
}

func TestInit_UnsupportedDriver(t *testing.T) {
	err := Init(context.Background(), nil, config.StorageDriver(42), &mockLockManager{}, nil)
	assert.Error(t, err)
}

func TestInit_SQLiteIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "listpilot.db"))
	require.NoError(t, err)
	defer db.Close()

	lockMgr := &mockLockManager{}
	ctx := context.Background()

	require.NoError(t, Init(ctx, db, config.SQLite, lockMgr, nil))
	require.NoError(t, Init(ctx, db, config.SQLite, lockMgr, nil))

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 3, applied)

	for _, table := range []string{"catalog_items", "schedule_entries", "marketplace_credentials"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
	assert.Equal(t, lockMgr.acquired, lockMgr.released)
}

func TestOpen_SQLite(t *testing.T) {
	cfg, err := config.NewConfig("test", config.WithSQLiteConfig(config.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "nested", "listpilot.db"),
	}))
	require.NoError(t, err)

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
