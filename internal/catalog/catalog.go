// Package catalog provides read access to the layered resource catalog:
// providers, programs, service areas, facilities and resources.
package catalog

import (
	"context"

	"github.com/givecare/resource-matcher/internal/model"
)

// Catalog is the read-only catalog the engine joins against. Batch getters
// return only the ids they found; a missing id is not an error.
type Catalog interface {
	// ScanServiceAreas returns up to limit service areas in a stable order.
	// A non-positive limit returns every area.
	ScanServiceAreas(ctx context.Context, limit int) ([]model.ServiceArea, error)

	// ResourcesByProgram returns up to limit resources of one program in a
	// stable order. A non-positive limit returns every resource.
	ResourcesByProgram(ctx context.Context, programID string, limit int) ([]model.Resource, error)

	GetPrograms(ctx context.Context, ids []string) (map[string]model.Program, error)
	GetProviders(ctx context.Context, ids []string) (map[string]model.Provider, error)
	GetFacilities(ctx context.Context, ids []string) (map[string]model.Facility, error)

	Close() error
}

// Store is a Catalog backed by a database that can create its schema and be
// loaded from a Snapshot.
type Store interface {
	Catalog
	Migrate(ctx context.Context) error
	Load(ctx context.Context, snap *Snapshot) error
}
