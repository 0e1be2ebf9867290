package catalog

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/givecare/resource-matcher/internal/config"
	"github.com/givecare/resource-matcher/internal/db"
)

// Driver names accepted in store.driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the Catalog selected by cfg.Driver. Database-backed catalogs
// are wrapped in Resilient; the in-memory snapshot is not.
func Open(ctx context.Context, cfg config.StoreConfig, res config.CatalogConfig) (Catalog, error) {
	if cfg.Driver == DriverMemory || cfg.Driver == "" {
		m, err := OpenMemory(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewResilient(st, res), nil
}

// OpenStore opens a database-backed Store.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return NewSQLite(cfg.DatabaseURL)
	case DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL, db.PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("catalog: driver %q has no database store", cfg.Driver)
	}
}
