// Package metrics exposes Prometheus instrumentation for stock operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "croptrace"

// Metrics holds every collector of the service on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	StockOperations        *prometheus.CounterVec
	StockOperationDuration *prometheus.HistogramVec
	CommitConflicts        *prometheus.CounterVec
	LotsWritten            *prometheus.CounterVec

	AlertsRaised *prometheus.GaugeVec
}

// New builds and registers every collector.
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
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	m.StockOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "operations_total",
			Help:      "Save and delete operations by record kind and outcome",
		},
		[]string{"operation", "kind", "outcome"},
	)
	m.StockOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "operation_duration_seconds",
			Help:      "End to end duration of save and delete including retries",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
	m.CommitConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "commit_conflicts_total",
			Help:      "Commits rejected because a record changed since the snapshot",
		},
		[]string{"operation"},
	)
	m.LotsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "lots_written_total",
			Help:      "Lots whose remaining quantity changed, by lot kind",
		},
		[]string{"kind"},
	)

	m.AlertsRaised = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "active",
			Help:      "Alerts found by the last evaluation, by type and severity",
		},
		[]string{"type", "severity"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StockOperations,
		m.StockOperationDuration,
		m.CommitConflicts,
		m.LotsWritten,
		m.AlertsRaised,
	)
	return m
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordStockOperation(operation, kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.StockOperations.WithLabelValues(operation, kind, outcome).Inc()
	m.StockOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordCommitConflict(operation string) {
	if m == nil {
		return
	}
	m.CommitConflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordLotWritten(kind string) {
	if m == nil {
		return
	}
	m.LotsWritten.WithLabelValues(kind).Inc()
}

// SetAlerts replaces the alert gauges with the latest counts.
func (m *Metrics) SetAlerts(counts map[[2]string]int) {
	if m == nil {
		return
	}
	m.AlertsRaised.Reset()
	for key, n := range counts {
		m.AlertsRaised.WithLabelValues(key[0], key[1]).Set(float64(n))
	}
}
