package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RezaEskandarii/listpilot/internal/constants"
	"github.com/RezaEskandarii/listpilot/internal/lock"
	"github.com/RezaEskandarii/listpilot/types/config"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Schema holds every Postgres table owned by listpilot.
const Schema = "listpilot"

//go:embed migrations
var migrations embed.FS

type dialect struct {
	dir       string
	bootstrap []string
	applied   string
	record    string
}

var dialects = map[config.StorageDriver]dialect{
	config.Postgres: {
		dir: "migrations/postgres",
		bootstrap: []string{
			fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", Schema),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.schema_migrations (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`, Schema),
		},
		applied: fmt.Sprintf("SELECT COUNT(*) FROM %s.schema_migrations WHERE version = $1", Schema),
		record:  fmt.Sprintf("INSERT INTO %s.schema_migrations (version) VALUES ($1)", Schema),
	},
	config.SQLite: {
		dir: "migrations/sqlite",
		bootstrap: []string{
			`CREATE TABLE IF NOT EXISTS schema_migrations (
				version TEXT PRIMARY KEY,
				applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
		},
		applied: "SELECT COUNT(*) FROM schema_migrations WHERE version = ?",
		record:  "INSERT INTO schema_migrations (version) VALUES (?)",
	},
}

// Open connects to the configured storage backend and verifies the connection.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.StorageDriver {
	case config.Postgres:
		db, err = sql.Open("postgres", cfg.PostgresConfig.ConnectionUrl)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresConfig.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.PostgresConfig.MaxOpenConns)
		}
	case config.SQLite:
		db, err = OpenSQLite(cfg.SQLiteConfig.Path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.StorageDriver, err)
	}
	return db, nil
}

// OpenSQLite opens a WAL-mode database file with a single writer connection.
func OpenSQLite(file string) (*sql.DB, error) {
	if dir := filepath.Dir(file); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", file)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Init applies the embedded migration scripts for driver that have not been
// applied yet. Only one instance migrates at a time; the others wait on
// MigrationLock and then find nothing left to do.
func Init(ctx context.Context, db *sql.DB, driver config.StorageDriver, locker lock.DistributedLockManager, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	d, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("unsupported storage driver: %s", driver)
	}

	if err := locker.Acquire(ctx, constants.MigrationLock); err != nil {
		return err
	}
	defer func() {
		if err := locker.Release(context.WithoutCancel(ctx), constants.MigrationLock); err != nil {
			logger.Warn("failed to release migration lock", "error", err)
		}
	}()

	for _, stmt := range d.bootstrap {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}

	scripts, err := readSQLScripts(d.dir)
	if err != nil {
		return err
	}

	for _, s := range scripts {
		var count int
		if err := db.QueryRowContext(ctx, d.applied, s.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", s.version, err)
		}
		if count > 0 {
			continue
		}

		if err := applyScript(ctx, db, d, s); err != nil {
			return err
		}
		logger.Info("migration applied", "version", s.version, "driver", driver.String())
	}

	return nil
}

type script struct {
	version    string
	statements []string
}

func applyScript(ctx context.Context, db *sql.DB, d dialect, s script) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply migration %s: %w", s.version, err)
	}
	defer tx.Rollback()

	for _, stmt := range s.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %s: %w", s.version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, d.record, s.version); err != nil {
		return fmt.Errorf("record migration %s: %w", s.version, err)
	}
	return tx.Commit()
}

func readSQLScripts(dir string) ([]script, error) {
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	scripts := make([]script, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(migrations, path.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, script{
			version:    strings.TrimSuffix(name, ".sql"),
			statements: splitStatements(string(content)),
		})
	}

	return scripts, nil
}

// splitStatements splits a script on semicolons that end a line. The scripts
// contain no procedural blocks, so this is sufficient.
func splitStatements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, ";\n") {
		stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";"))
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
