package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/gather"
	"github.com/givecare/resource-matcher/internal/model"
)

// The join runs in three barriers: programs (then their providers), then
// resources per program, then facilities. Each stage consumes the previous
// stage's type, so the order cannot be rearranged by accident.

// programStage holds the programs and providers resolved for a set of areas.
// Programs whose provider is missing are removed.
type programStage struct {
	programs  map[string]model.Program
	providers map[string]model.Provider
}

// has reports whether a program and its provider both resolved.
func (s *programStage) has(programID string) bool {
	_, ok := s.programs[programID]
	return ok
}

// candidate is a representative service area joined to its program.
type candidate struct {
	area     model.ServiceArea
	program  model.Program
	provider model.Provider
}

// candidates joins representative areas to the stage. Areas whose program did
// not resolve are skipped.
func (s *programStage) candidates(areas []model.ServiceArea) []candidate {
	out := make([]candidate, 0, len(areas))
	for _, a := range areas {
		p, ok := s.programs[a.ProgramID]
		if !ok {
			continue
		}
		out = append(out, candidate{area: a, program: p, provider: s.providers[p.ProviderID]})
	}
	return out
}

// resourceStage holds the resources fetched for each candidate's program.
type resourceStage struct {
	candidates []candidate
	resources  map[string][]model.Resource
}

// facilityStage adds the facilities referenced by the resources.
type facilityStage struct {
	*resourceStage
	facilities map[string]model.Facility
}

// joined is one resource with every record it references.
type joined struct {
	resource model.Resource
	facility *model.Facility
	candidate
}

func (e *Engine) resolvePrograms(ctx context.Context, areas []model.ServiceArea) (*programStage, error) {
	defer e.timeStage("programs", time.Now())
	ctx, span := e.tracer.Start(ctx, "engine.resolvePrograms")
	defer span.End()

	ids := make([]string, 0, len(areas))
	for _, a := range areas {
		ids = append(ids, a.ProgramID)
	}
	ids = gather.Distinct(ids)

	programs, err := gather.Batches(ctx, ids, e.cfg.BatchSize, e.cfg.MaxConcurrency, e.catalog.GetPrograms)
	if err != nil {
		return nil, eris.Wrap(err, "engine: resolve programs")
	}
	e.dropped("program", len(ids)-len(programs))

	providerIDs := make([]string, 0, len(programs))
	for _, p := range programs {
		providerIDs = append(providerIDs, p.ProviderID)
	}
	providers, err := gather.Batches(ctx, providerIDs, e.cfg.BatchSize, e.cfg.MaxConcurrency, e.catalog.GetProviders)
	if err != nil {
		return nil, eris.Wrap(err, "engine: resolve providers")
	}

	var orphaned int
	for id, p := range programs {
		if _, ok := providers[p.ProviderID]; !ok {
			delete(programs, id)
			orphaned++
		}
	}
	e.dropped("provider", orphaned)
	span.SetAttributes(
		attribute.Int("programs", len(programs)),
		attribute.Int("providers", len(providers)),
	)

	return &programStage{programs: programs, providers: providers}, nil
}

func (e *Engine) resolveResources(ctx context.Context, cands []candidate) (*resourceStage, error) {
	defer e.timeStage("resources", time.Now())
	ctx, span := e.tracer.Start(ctx, "engine.resolveResources")
	defer span.End()
	span.SetAttributes(attribute.Int("programs", len(cands)))

	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.program.ID
	}

	limit := e.cfg.MaxResourcesPerProgram
	resources, err := gather.Each(ctx, ids, e.cfg.MaxConcurrency, func(ctx context.Context, programID string) ([]model.Resource, error) {
		return e.catalog.ResourcesByProgram(ctx, programID, limit)
	})
	if err != nil {
		return nil, eris.Wrap(err, "engine: resolve resources")
	}

	if limit > 0 {
		for id, rs := range resources {
			if len(rs) > limit {
				resources[id] = rs[:limit]
			}
		}
	}
	return &resourceStage{candidates: cands, resources: resources}, nil
}

func (e *Engine) resolveFacilities(ctx context.Context, rs *resourceStage) (*facilityStage, error) {
	defer e.timeStage("facilities", time.Now())
	ctx, span := e.tracer.Start(ctx, "engine.resolveFacilities")
	defer span.End()

	var ids []string
	for _, list := range rs.resources {
		for _, r := range list {
			if r.FacilityID != nil {
				ids = append(ids, *r.FacilityID)
			}
		}
	}

	facilities, err := gather.Batches(ctx, ids, e.cfg.BatchSize, e.cfg.MaxConcurrency, e.catalog.GetFacilities)
	if err != nil {
		return nil, eris.Wrap(err, "engine: resolve facilities")
	}
	span.SetAttributes(attribute.Int("facilities", len(facilities)))
	return &facilityStage{resourceStage: rs, facilities: facilities}, nil
}

// rows flattens the stage into joined resources in candidate order. A
// resource whose facility reference dangles is dropped.
func (fs *facilityStage) rows(log *zap.Logger) (out []joined, dangling int) {
	for _, c := range fs.candidates {
		for _, r := range fs.resources[c.program.ID] {
			j := joined{resource: r, candidate: c}
			if r.FacilityID != nil {
				f, ok := fs.facilities[*r.FacilityID]
				if !ok {
					log.Debug("dropping resource with unknown facility",
						zap.String("resource_id", r.ID),
						zap.String("facility_id", *r.FacilityID),
					)
					dangling++
					continue
				}
				j.facility = &f
			}
			out = append(out, j)
		}
	}
	return out, dangling
}
