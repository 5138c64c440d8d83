package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Provider metrics
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ChunkOutcomesTotal      *prometheus.CounterVec

	// Store metrics
	StoreErrorsTotal    *prometheus.CounterVec
	PointsUpsertedTotal *prometheus.CounterVec
	DBQueryDuration     *prometheus.HistogramVec
}

// NewCollector creates a collector backed by its own registry.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),

		ProviderRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Upstream provider requests by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		ProviderRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Upstream provider request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),

		ChunkOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunk_outcomes_total",
				Help:      "Fetched chunks by dataset, mode, and outcome (ok, degraded)",
			},
			[]string{"dataset", "mode", "outcome"},
		),

		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Store failures by operation",
			},
			[]string{"op"},
		),

		PointsUpsertedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_upserted_total",
				Help:      "Points written to the store by dataset",
			},
			[]string{"dataset"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),
	}
}

// Registry exposes the underlying registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordAPIRequest records one served request.
func (c *Collector) RecordAPIRequest(route, method, status string, took time.Duration) {
	if c == nil {
		return
	}
	c.APIRequestsTotal.WithLabelValues(route, method, status).Inc()
	c.APIRequestDuration.WithLabelValues(route).Observe(took.Seconds())
}

// RecordProviderRequest records one upstream call.
func (c *Collector) RecordProviderRequest(endpoint string, err error, took time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	c.ProviderRequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

// RecordChunk records whether a chunk contributed points or degraded.
func (c *Collector) RecordChunk(dataset, mode string, degraded bool) {
	if c == nil {
		return
	}
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	c.ChunkOutcomesTotal.WithLabelValues(dataset, mode, outcome).Inc()
}

// RecordStoreError increments the store error counter.
func (c *Collector) RecordStoreError(op string) {
	if c == nil {
		return
	}
	c.StoreErrorsTotal.WithLabelValues(op).Inc()
}

// RecordUpsert counts points written for a dataset.
func (c *Collector) RecordUpsert(dataset string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.PointsUpsertedTotal.WithLabelValues(dataset).Add(float64(n))
}

// ObserveQuery records a database query duration.
func (c *Collector) ObserveQuery(queryType string, took time.Duration) {
	if c == nil {
		return
	}
	c.DBQueryDuration.WithLabelValues(queryType).Observe(took.Seconds())
}
