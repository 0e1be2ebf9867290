// Package engine answers resource-matching queries: it resolves the caller's
// location, walks the service-area cascade, joins catalog records, scores and
// ranks the result.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/catalog"
	"github.com/givecare/resource-matcher/internal/config"
	"github.com/givecare/resource-matcher/internal/geo"
	"github.com/givecare/resource-matcher/internal/matcher"
	"github.com/givecare/resource-matcher/internal/model"
	"github.com/givecare/resource-matcher/internal/ranker"
	"github.com/givecare/resource-matcher/internal/scorer"
)

const tracerName = "resource-matcher.engine"

// Engine is stateless between queries and safe for concurrent use.
type Engine struct {
	catalog catalog.Catalog
	scorer  *scorer.Scorer
	cfg     config.MatcherConfig
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Result is the outcome of one FindResources call.
type Result struct {
	QueryID   string                 `json:"query_id"`
	Location  geo.Location           `json:"location"`
	State     matcher.State          `json:"state"`
	Scanned   int                    `json:"scanned"`
	Resources []model.RankedResource `json:"resources"`
}

// New creates an Engine. metrics may be nil.
func New(c catalog.Catalog, s *scorer.Scorer, cfg config.MatcherConfig, metrics *Metrics) *Engine {
	return &Engine{
		catalog: c,
		scorer:  s,
		cfg:     cfg,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
}

// WithTracerProvider traces queries with tp instead of the global provider.
func (e *Engine) WithTracerProvider(tp trace.TracerProvider) *Engine {
	e.tracer = tp.Tracer(tracerName)
	return e
}

// WithNow fixes the clock used for freshness scoring.
func (e *Engine) WithNow(t time.Time) *Engine {
	e.now = func() time.Time { return t }
	return e
}

// FindResources returns up to q.Limit ranked resources for q. An empty
// Resources slice is a valid answer; errors come only from the catalog or
// the context.
func (e *Engine) FindResources(ctx context.Context, q model.Query) (res *Result, err error) {
	start := time.Now()
	res = &Result{QueryID: uuid.New().String()}

	ctx, span := e.tracer.Start(ctx, "engine.FindResources")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "find resources failed")
		} else {
			span.SetAttributes(
				attribute.String("cascade_state", string(res.State)),
				attribute.Int("results", len(res.Resources)),
			)
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("query_id", res.QueryID),
		attribute.Int("limit", q.Limit),
		attribute.Bool("category_filter", q.CategoryFilter() != ""),
	)

	log := zap.L().With(
		zap.String("component", "engine"),
		zap.String("query_id", res.QueryID),
	)

	areas, err := e.scan(ctx)
	if err != nil {
		return nil, err
	}
	res.Scanned = len(areas)

	res.Location = geo.Resolve(q.ZIP)
	tiers := matcher.Partition(areas, res.Location)
	log.Debug("partitioned service areas",
		zap.Int("scanned", len(areas)),
		zap.Int("zip", len(tiers.ZIP)),
		zap.Int("cluster_or_state", len(tiers.ClusterOrState)),
		zap.Int("national", len(tiers.National)),
	)

	stage, err := e.resolvePrograms(ctx, tiers.All())
	if err != nil {
		return nil, err
	}

	category := q.CategoryFilter()
	accept := func(a model.ServiceArea) bool {
		if !stage.has(a.ProgramID) {
			return false
		}
		return category == "" || stage.programs[a.ProgramID].HasCategory(category)
	}
	unfiltered := func(a model.ServiceArea) bool { return stage.has(a.ProgramID) }

	cascade := matcher.CascadeWith(tiers, accept, unfiltered)
	res.State = cascade.State
	log.Debug("cascade settled",
		zap.String("state", string(cascade.State)),
		zap.Int("areas", len(cascade.Areas)),
	)

	if !cascade.Empty() {
		cands := stage.candidates(matcher.Representatives(matcher.Dedup(cascade.Areas)))
		ranked, err := e.scoreCandidates(ctx, q, cands, log)
		if err != nil {
			return nil, err
		}
		res.Resources = ranked
	}
	if res.Resources == nil {
		res.Resources = []model.RankedResource{}
	}

	e.metrics.ObserveQuery(time.Since(start), string(res.State), len(res.Resources))
	log.Info("find resources complete",
		zap.String("zip", q.ZIP),
		zap.String("state", string(res.State)),
		zap.Int("results", len(res.Resources)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (e *Engine) scan(ctx context.Context) ([]model.ServiceArea, error) {
	defer e.timeStage("scan", time.Now())
	ctx, span := e.tracer.Start(ctx, "engine.scan")
	defer span.End()

	areas, err := e.catalog.ScanServiceAreas(ctx, e.cfg.MaxServiceAreas)
	if err != nil {
		return nil, eris.Wrap(err, "engine: scan service areas")
	}
	span.SetAttributes(attribute.Int("areas", len(areas)))
	return areas, nil
}

func (e *Engine) scoreCandidates(ctx context.Context, q model.Query, cands []candidate, log *zap.Logger) ([]model.RankedResource, error) {
	rs, err := e.resolveResources(ctx, cands)
	if err != nil {
		return nil, err
	}
	fs, err := e.resolveFacilities(ctx, rs)
	if err != nil {
		return nil, err
	}

	rows, dangling := fs.rows(log)
	e.dropped("facility", dangling)

	scoreStart := time.Now()
	req := scorer.NewRequest(q)
	now := e.now()
	scored := make([]model.RankedResource, 0, len(rows))
	for _, j := range rows {
		score, breakdown := e.scorer.ScoreAt(now, req, j.resource, j.program, j.area)
		scored = append(scored, model.RankedResource{
			Resource:  j.resource,
			Program:   j.program,
			Provider:  j.provider,
			Facility:  j.facility,
			Area:      j.area,
			Score:     score,
			Breakdown: breakdown,
		})
	}
	e.timeStage("score", scoreStart)

	return ranker.Rank(scored, e.limit(q.Limit)), nil
}

func (e *Engine) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	if e.cfg.DefaultLimit > 0 {
		return e.cfg.DefaultLimit
	}
	return model.DefaultLimit
}

func (e *Engine) timeStage(stage string, start time.Time) {
	e.metrics.ObserveStage(stage, time.Since(start))
}

func (e *Engine) dropped(entity string, n int) {
	if n > 0 {
		zap.L().Debug("engine: dropped dangling references",
			zap.String("entity", entity),
			zap.Int("count", n),
		)
	}
	e.metrics.AddDropped(entity, n)
}
