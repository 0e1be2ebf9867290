package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for resource matching. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// End-to-end FindResources latency
	QueryLatency prometheus.Histogram

	// Join and scoring stage latencies
	StageLatency *prometheus.HistogramVec

	// Cascade state that produced each result
	CascadeState *prometheus.CounterVec

	// Candidates dropped for dangling references, by entity
	Dropped *prometheus.CounterVec

	// Resources returned per query
	Results prometheus.Histogram
}

// NewMetrics registers the matcher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "matcher_find_resources_duration_seconds",
			Help:    "Duration of FindResources including all catalog joins",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "matcher_stage_duration_seconds",
			Help:    "Duration of each FindResources stage",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}), // scan, programs, resources, facilities, score

		CascadeState: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matcher_cascade_state_total",
			Help: "Queries by the cascade state that produced their candidates",
		}, []string{"state"}),

		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "matcher_dropped_references_total",
			Help: "Catalog references that could not be resolved, by entity",
		}, []string{"entity"}),

		Results: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "matcher_results_per_query",
			Help:    "Number of ranked resources returned per query",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
	}
}

// ObserveQuery records one completed query.
func (m *Metrics) ObserveQuery(d time.Duration, state string, results int) {
	if m != nil {
		m.QueryLatency.Observe(d.Seconds())
		m.CascadeState.WithLabelValues(state).Inc()
		m.Results.Observe(float64(results))
	}
}

// ObserveStage records the duration of a stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// AddDropped counts n unresolved references to entity.
func (m *Metrics) AddDropped(entity string, n int) {
	if m != nil && n > 0 {
		m.Dropped.WithLabelValues(entity).Add(float64(n))
	}
}
