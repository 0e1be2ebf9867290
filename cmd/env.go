package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/catalog"
	"github.com/givecare/resource-matcher/internal/engine"
	"github.com/givecare/resource-matcher/internal/scorer"
)

// matcherEnv holds the opened catalog and the engine built on it, as needed
// by the find and serve commands.
type matcherEnv struct {
	Catalog catalog.Catalog
	Engine  *engine.Engine
}

// Close releases the catalog.
func (me *matcherEnv) Close() {
	if me.Catalog != nil {
		_ = me.Catalog.Close()
	}
}

// initEngine validates config for mode, opens the catalog and builds the
// engine. reg may be nil to skip metrics. Callers should defer env.Close().
func initEngine(ctx context.Context, mode string, reg prometheus.Registerer) (*matcherEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	if err := scorer.ValidateConfig(cfg.Scoring); err != nil {
		return nil, err
	}

	cat, err := catalog.Open(ctx, cfg.Store, cfg.Catalog)
	if err != nil {
		return nil, eris.Wrap(err, "open catalog")
	}

	var metrics *engine.Metrics
	if reg != nil {
		metrics = engine.NewMetrics(reg)
	}

	zap.L().Debug("catalog opened",
		zap.String("driver", cfg.Store.Driver),
		zap.Bool("metrics", metrics != nil),
	)

	return &matcherEnv{
		Catalog: cat,
		Engine:  engine.New(cat, scorer.New(cfg.Scoring), cfg.Matcher, metrics),
	}, nil
}
