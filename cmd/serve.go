package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/givecare/resource-matcher/internal/catalog"
	"github.com/givecare/resource-matcher/internal/engine"
	"github.com/givecare/resource-matcher/internal/model"
	"github.com/givecare/resource-matcher/internal/resilience"
)

var servePort int

// finder is the slice of the engine the HTTP handlers need.
type finder interface {
	FindResources(ctx context.Context, q model.Query) (*engine.Result, error)
}

// breakerStater reports the catalog circuit breaker for /health.
type breakerStater interface {
	BreakerState() resilience.BreakerState
}

// catalogHealth returns cat's breaker reporter, or nil when cat has none.
func catalogHealth(cat catalog.Catalog) breakerStater {
	if rc, ok := cat.(*catalog.Resilient); ok {
		return rc
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resource matching HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		env, err := initEngine(ctx, "serve", reg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Engine, catalogHealth(env.Catalog), reg, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter mounts the health, query and metrics endpoints. health may be
// nil when the catalog has no circuit breaker.
func buildRouter(f finder, health breakerStater, gatherer prometheus.Gatherer, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth(health))

	r.Get("/v1/resources", handleFindResources(f))

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// handleHealth reports 503 while the catalog breaker is open.
func handleHealth(health breakerStater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
		state := health.BreakerState()
		if state == resilience.BreakerOpen {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "catalog": state.String()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "catalog": state.String()})
	}
}

func handleFindResources(f finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		res, err := f.FindResources(r.Context(), q)
		if err != nil {
			zap.L().Error("find resources failed",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("zip", q.ZIP),
				zap.Error(err),
			)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "catalog unavailable"})
			return
		}

		writeJSON(w, http.StatusOK, engine.Format(res, time.Now()))
	}
}

func queryFromRequest(r *http.Request) (model.Query, error) {
	v := r.URL.Query()
	q := model.Query{
		ZIP:   v.Get("zip"),
		Zones: splitAndTrim(v.Get("zones")),
		Bands: splitAndTrim(v.Get("bands")),
	}
	if v.Has("category") {
		category := v.Get("category")
		q.Category = &category
	}
	if raw := v.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return model.Query{}, eris.Errorf("limit must be an integer, got %q", raw)
		}
		q.Limit = limit
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}
