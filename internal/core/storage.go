package core

import (
	"context"
	"fmt"
	"io"

	"staytrack/internal/infra/persistence/memory"
	"staytrack/internal/infra/persistence/postgres"
	"staytrack/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects the backend for OpenPersistentStore.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore builds the configured store. It defaults to sqlite and
// falls back to the default rules engine when engine is nil. The returned
// closer releases database handles and is never nil.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *RulesEngine) (PersistentStore, io.Closer, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	switch cfg.Driver {
	case StorageMemory:
		return memory.NewStore(engine), nopCloser{}, nil
	case "", StorageSQLite:
		s, err := sqlite.NewStore(cfg.SQLitePath, engine)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// NewMemoryStore returns an in-memory store with the default rules engine.
func NewMemoryStore() PersistentStore {
	return memory.NewStore(NewDefaultRulesEngine())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
