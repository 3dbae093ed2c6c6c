package config

import "fmt"

type StorageDriver int

const (
	Postgres StorageDriver = iota + 1
	SQLite
)

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	}
	return "unknown"
}

// ParseStorageDriver maps a configuration value to a StorageDriver.
func ParseStorageDriver(s string) (StorageDriver, error) {
	switch s {
	case "postgres", "postgresql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return 0, fmt.Errorf("unknown storage driver %q", s)
}

type LockDriver int

const (
	// LockStorage uses the storage backend: advisory locks on Postgres,
	// in-process locks on SQLite.
	LockStorage LockDriver = iota + 1
	LockRedis
	LockLocal
)

func (d LockDriver) String() string {
	switch d {
	case LockStorage:
		return "storage"
	case LockRedis:
		return "redis"
	case LockLocal:
		return "local"
	}
	return "unknown"
}

func ParseLockDriver(s string) (LockDriver, error) {
	switch s {
	case "", "storage":
		return LockStorage, nil
	case "redis":
		return LockRedis, nil
	case "local":
		return LockLocal, nil
	}
	return 0, fmt.Errorf("unknown lock driver %q", s)
}

type AdapterKind string

const (
	AdapterHTTP AdapterKind = "http"
	AdapterMock AdapterKind = "mock"
)

// StaleAction is what the dispatcher does with entries stuck in RUNNING.
type StaleAction string

const (
	StaleToError   StaleAction = "error"
	StaleToRequeue StaleAction = "requeue"
)
