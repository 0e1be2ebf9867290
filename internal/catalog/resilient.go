package catalog

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/givecare/resource-matcher/internal/config"
	"github.com/givecare/resource-matcher/internal/model"
	"github.com/givecare/resource-matcher/internal/resilience"
)

// Resilient decorates a Catalog with client-side rate limiting, retry of
// transient failures and a circuit breaker shared by every operation.
type Resilient struct {
	next    Catalog
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
}

var _ Catalog = (*Resilient)(nil)

// NewResilient wraps next using the catalog config section. A non-positive
// rate disables limiting.
func NewResilient(next Catalog, cfg config.CatalogConfig) *Resilient {
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := max(cfg.Burst, 1)

	breakerCfg := resilience.BreakerFromCatalog(cfg)
	breakerCfg.OnStateChange = func(from, to resilience.BreakerState) {
		zap.L().Warn("catalog circuit breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Resilient{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		retry:   resilience.RetryFromCatalog(cfg),
		breaker: resilience.NewBreaker(breakerCfg),
	}
}

// BreakerState exposes the breaker state for health reporting.
func (r *Resilient) BreakerState() resilience.BreakerState {
	return r.breaker.State()
}

func (r *Resilient) ScanServiceAreas(ctx context.Context, limit int) ([]model.ServiceArea, error) {
	return call(ctx, r, "scan_service_areas", func(ctx context.Context) ([]model.ServiceArea, error) {
		return r.next.ScanServiceAreas(ctx, limit)
	})
}

func (r *Resilient) ResourcesByProgram(ctx context.Context, programID string, limit int) ([]model.Resource, error) {
	return call(ctx, r, "resources_by_program", func(ctx context.Context) ([]model.Resource, error) {
		return r.next.ResourcesByProgram(ctx, programID, limit)
	})
}

func (r *Resilient) GetPrograms(ctx context.Context, ids []string) (map[string]model.Program, error) {
	return call(ctx, r, "get_programs", func(ctx context.Context) (map[string]model.Program, error) {
		return r.next.GetPrograms(ctx, ids)
	})
}

func (r *Resilient) GetProviders(ctx context.Context, ids []string) (map[string]model.Provider, error) {
	return call(ctx, r, "get_providers", func(ctx context.Context) (map[string]model.Provider, error) {
		return r.next.GetProviders(ctx, ids)
	})
}

func (r *Resilient) GetFacilities(ctx context.Context, ids []string) (map[string]model.Facility, error) {
	return call(ctx, r, "get_facilities", func(ctx context.Context) (map[string]model.Facility, error) {
		return r.next.GetFacilities(ctx, ids)
	})
}

func (r *Resilient) Close() error {
	return r.next.Close()
}

func call[T any](ctx context.Context, r *Resilient, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := r.retry
	retry.OnRetry = resilience.RetryLogger(op)

	val, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (T, error) {
		if err := r.limiter.Wait(ctx); err != nil {
			var zero T
			return zero, eris.Wrap(err, "catalog: rate limit wait")
		}
		return resilience.ExecuteVal(ctx, r.breaker, fn)
	})
	if err != nil {
		return val, eris.Wrapf(err, "catalog: %s", op)
	}
	return val, nil
}
