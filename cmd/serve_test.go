//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/givecare/resource-matcher/internal/catalog"
	"github.com/givecare/resource-matcher/internal/config"
	"github.com/givecare/resource-matcher/internal/engine"
	"github.com/givecare/resource-matcher/internal/matcher"
	"github.com/givecare/resource-matcher/internal/model"
	"github.com/givecare/resource-matcher/internal/resilience"
	"github.com/givecare/resource-matcher/internal/scorer"
)

type stubFinder struct {
	got model.Query
	res *engine.Result
	err error
}

func (s *stubFinder) FindResources(_ context.Context, q model.Query) (*engine.Result, error) {
	s.got = q
	return s.res, s.err
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_HealthEndpoint(t *testing.T) {
	h := buildRouter(&stubFinder{}, nil, nil, []string{"*"})

	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

type stubHealth resilience.BreakerState

func (s stubHealth) BreakerState() resilience.BreakerState { return resilience.BreakerState(s) }

// downCatalog fails every service area scan with a transient error.
type downCatalog struct {
	*catalog.Memory
}

func (downCatalog) ScanServiceAreas(context.Context, int) ([]model.ServiceArea, error) {
	return nil, resilience.Transient(errors.New("connection refused"))
}

func TestBuildRouter_HealthReportsBreaker(t *testing.T) {
	tests := []struct {
		name       string
		state      resilience.BreakerState
		wantCode   int
		wantStatus string
	}{
		{"closed", resilience.BreakerClosed, http.StatusOK, "ok"},
		{"half-open", resilience.BreakerHalfOpen, http.StatusOK, "ok"},
		{"open", resilience.BreakerOpen, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := buildRouter(&stubFinder{}, stubHealth(tt.state), nil, []string{"*"})

			rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, tt.state.String(), body["catalog"])
		})
	}
}

func TestBuildRouter_HealthWithTrippedCatalog(t *testing.T) {
	res := catalog.NewResilient(downCatalog{Memory: catalog.NewMemory(nil)}, config.CatalogConfig{
		RetryAttempts:    1,
		BreakerThreshold: 1,
		BreakerResetSecs: 60,
	})
	health := catalogHealth(res)
	require.NotNil(t, health)
	h := buildRouter(&stubFinder{}, health, nil, []string{"*"})

	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	_, err := res.ScanServiceAreas(context.Background(), 0)
	require.Error(t, err)

	rr = serve(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"degraded","catalog":"open"}`, rr.Body.String())
}

func TestCatalogHealth_PlainCatalog(t *testing.T) {
	assert.Nil(t, catalogHealth(catalog.NewMemory(nil)))
}

func TestBuildRouter_FindResources_ParsesQuery(t *testing.T) {
	f := &stubFinder{res: &engine.Result{
		QueryID: "q-1",
		State:   matcher.StateZIPMatch,
		Resources: []model.RankedResource{
			{Resource: model.Resource{ID: "r-1"}, Score: 88},
		},
	}}
	h := buildRouter(f, nil, nil, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/v1/resources?zip=10001&zones=emotional,physical&bands=crisis&category=respite&limit=3", nil)
	rr := serve(t, h, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "10001", f.got.ZIP)
	assert.Equal(t, []string{"emotional", "physical"}, f.got.Zones)
	assert.Equal(t, []string{"crisis"}, f.got.Bands)
	require.NotNil(t, f.got.Category)
	assert.Equal(t, "respite", *f.got.Category)
	assert.Equal(t, 3, f.got.Limit)

	var out engine.Formatted
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "q-1", out.QueryID)
	assert.Equal(t, engine.Disclosure, out.Disclosure)
	require.Len(t, out.Resources, 1)
	assert.Equal(t, 88, out.Resources[0].Score)
	assert.Equal(t, "not yet verified", out.Resources[0].Freshness)
}

func TestBuildRouter_FindResources_OmittedCategory(t *testing.T) {
	f := &stubFinder{res: &engine.Result{State: matcher.StateNationalUnfiltered}}
	h := buildRouter(f, nil, nil, []string{"*"})

	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/resources?zip=10001", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, f.got.Category)
	assert.Zero(t, f.got.Limit)
}

func TestBuildRouter_FindResources_BadLimit(t *testing.T) {
	f := &stubFinder{}
	h := buildRouter(f, nil, nil, []string{"*"})

	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/resources?zip=10001&limit=ten", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "limit must be an integer")
	assert.Empty(t, f.got.ZIP)
}

func TestBuildRouter_FindResources_CatalogError(t *testing.T) {
	f := &stubFinder{err: errors.New("connection refused")}
	h := buildRouter(f, nil, nil, []string{"*"})

	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/resources?zip=10001", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "catalog unavailable")
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestBuildRouter_MethodNotAllowed(t *testing.T) {
	h := buildRouter(&stubFinder{}, nil, nil, []string{"*"})

	rr := serve(t, h, httptest.NewRequest(http.MethodPost, "/v1/resources", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBuildRouter_CORS(t *testing.T) {
	h := buildRouter(&stubFinder{}, nil, nil, []string{"https://app.example.org"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.org")
	rr := serve(t, h, req)
	assert.Equal(t, "https://app.example.org", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = serve(t, h, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_MetricsEndpoint(t *testing.T) {
	h := buildRouter(&stubFinder{}, nil, nil, []string{"*"})
	rr := serve(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "matcher_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	h = buildRouter(&stubFinder{}, nil, reg, []string{"*"})
	rr = serve(t, h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "matcher_test_total 1")
}

func TestServe_EndToEnd(t *testing.T) {
	mem, err := catalog.OpenMemory(testSnapshot)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	eng := engine.New(mem, scorer.New(scorer.DefaultScoringConfig()), config.MatcherConfig{
		MaxServiceAreas:        100,
		MaxResourcesPerProgram: 25,
		BatchSize:              10,
		MaxConcurrency:         4,
		DefaultLimit:           5,
	}, engine.NewMetrics(reg))

	srv := httptest.NewServer(buildRouter(eng, nil, reg, []string{"*"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/resources?zip=10001&zones=emotional")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out engine.Formatted
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, matcher.StateZIPMatch, out.State)
	require.Len(t, out.Resources, 1)
	assert.Equal(t, "r-voucher", out.Resources[0].Resource.ID)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
}
