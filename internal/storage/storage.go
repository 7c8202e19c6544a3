// Package storage selects the record store backing the reference profile
// service.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"petcore/internal/infra/persistence/memory"
	"petcore/internal/infra/persistence/postgres"
	"petcore/internal/infra/persistence/sqlite"
	"petcore/pkg/domain"
)

// Driver identifies a concrete persistent storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Config selects and configures a backend.
type Config struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// ConfigFromEnv reads
//
//	PETCORE_STORAGE_DRIVER  memory|sqlite|postgres (default sqlite)
//	PETCORE_SQLITE_PATH     sqlite file (default ./petcore.db)
//	PETCORE_POSTGRES_DSN    DSN when driver=postgres
func ConfigFromEnv() Config {
	return Config{
		Driver:      os.Getenv("PETCORE_STORAGE_DRIVER"),
		SQLitePath:  os.Getenv("PETCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("PETCORE_POSTGRES_DSN"),
	}
}

// Store is a record store that may hold external resources.
type Store interface {
	domain.RecordStore
	io.Closer
}

type memoryStore struct{ *memory.Store }

func (memoryStore) Close() error { return nil }

// Open constructs the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverSQLite)
	}
	switch Driver(driver) {
	case DriverMemory:
		return memoryStore{memory.NewStore()}, nil
	case DriverSQLite:
		s, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
