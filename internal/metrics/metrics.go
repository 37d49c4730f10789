package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "replenish"

// Metrics holds the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OptimizationsTotal   *prometheus.CounterVec
	OptimizationDuration *prometheus.HistogramVec
	OptimizationCost     *prometheus.GaugeVec

	CacheLookups *prometheus.CounterVec
}

// New creates a new Metrics instance
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	m.OptimizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimizations_total",
			Help:      "Optimisation runs by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	m.OptimizationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimization_duration_seconds",
			Help:      "Solver wall time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"kind"},
	)

	m.OptimizationCost = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "optimization_last_total_cost",
			Help:      "Objective value of the most recent successful run",
		},
		[]string{"kind"},
	)

	m.CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "demand_cache_lookups_total",
			Help:      "Demand parameter cache lookups by result",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OptimizationsTotal,
		m.OptimizationDuration,
		m.OptimizationCost,
		m.CacheLookups,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOptimization records one solver run. totalCost is only kept for
// successful runs.
func (m *Metrics) RecordOptimization(kind, outcome string, duration time.Duration, totalCost float64) {
	if m == nil {
		return
	}
	m.OptimizationsTotal.WithLabelValues(kind, outcome).Inc()
	m.OptimizationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.OptimizationCost.WithLabelValues(kind).Set(totalCost)
	}
}

// RecordCacheLookup counts a demand cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

const (
	KindInventory = "inventory"
	KindRouting   = "routing"

	OutcomeSuccess    = "success"
	OutcomeInfeasible = "infeasible"
	OutcomeInvalid    = "invalid"
	OutcomeTimeout    = "timeout"
	OutcomeFailure    = "failure"
)
