package catalog

import (
	"context"

	"github.com/givecare/resource-matcher/internal/model"
)

// Memory is a Catalog over a Snapshot. It is safe for concurrent reads and
// returns records in snapshot order.
type Memory struct {
	areas      []model.ServiceArea
	programs   map[string]model.Program
	providers  map[string]model.Provider
	facilities map[string]model.Facility
	byProgram  map[string][]model.Resource
}

var _ Catalog = (*Memory)(nil)

// NewMemory indexes snap. Later duplicates of an id replace earlier ones.
func NewMemory(snap *Snapshot) *Memory {
	if snap == nil {
		snap = &Snapshot{}
	}
	m := &Memory{
		areas:      snap.ServiceAreas,
		programs:   make(map[string]model.Program, len(snap.Programs)),
		providers:  make(map[string]model.Provider, len(snap.Providers)),
		facilities: make(map[string]model.Facility, len(snap.Facilities)),
		byProgram:  make(map[string][]model.Resource),
	}
	for _, p := range snap.Programs {
		m.programs[p.ID] = p
	}
	for _, p := range snap.Providers {
		m.providers[p.ID] = p
	}
	for _, f := range snap.Facilities {
		m.facilities[f.ID] = f
	}
	for _, r := range snap.Resources {
		m.byProgram[r.ProgramID] = append(m.byProgram[r.ProgramID], r)
	}
	return m
}

// OpenMemory loads a YAML snapshot from path.
func OpenMemory(path string) (*Memory, error) {
	snap, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return NewMemory(snap), nil
}

func (m *Memory) ScanServiceAreas(ctx context.Context, limit int) ([]model.ServiceArea, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return capped(m.areas, limit), nil
}

func (m *Memory) ResourcesByProgram(ctx context.Context, programID string, limit int) ([]model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return capped(m.byProgram[programID], limit), nil
}

func (m *Memory) GetPrograms(ctx context.Context, ids []string) (map[string]model.Program, error) {
	return lookup(ctx, m.programs, ids)
}

func (m *Memory) GetProviders(ctx context.Context, ids []string) (map[string]model.Provider, error) {
	return lookup(ctx, m.providers, ids)
}

func (m *Memory) GetFacilities(ctx context.Context, ids []string) (map[string]model.Facility, error) {
	return lookup(ctx, m.facilities, ids)
}

func (m *Memory) Close() error { return nil }

func capped[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func lookup[T any](ctx context.Context, src map[string]T, ids []string) (map[string]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(map[string]T, len(ids))
	for _, id := range ids {
		if v, ok := src[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}
