// Package metrics holds the Prometheus collectors of the plant diaries
// service. Collectors are registered on a caller-supplied registry so tests
// and the CLI can each use their own.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plantdiaries"

// Import row outcomes.
const (
	RowSuccess = "success"
	RowError   = "error"
)

// Metrics groups every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	uploads        *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	orphansRemoved prometheus.Counter
}

// New registers the collectors, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Stored photo uploads by file format.",
		}, []string{"format"}),
		importRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "CSV import rows by result.",
		}, []string{"result"}),
		orphansRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_removed_total",
			Help:      "Photo records removed because their file was missing.",
		}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Upload counts one stored upload.
func (m *Metrics) Upload(format string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(format).Inc()
}

// ImportRow counts one processed CSV row.
func (m *Metrics) ImportRow(result string) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(result).Inc()
}

// OrphansRemoved adds n removed orphan photo records.
func (m *Metrics) OrphansRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orphansRemoved.Add(float64(n))
}
