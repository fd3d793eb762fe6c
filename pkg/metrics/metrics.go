// Package metrics defines the Prometheus series exposed on /metrics:
// HTTP request duration, cache hit/miss counts, provider call latency
// and retries, and PII detection counts, all built with promauto so
// every series self-registers on construction.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container. Construct once at
// startup with New and pass it to every collaborator that records.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CacheIOErrors    *prometheus.CounterVec

	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ProviderRetriesTotal    *prometheus.CounterVec

	PIIDetectionsTotal *prometheus.CounterVec
	AuditIOErrors      prometheus.Counter

	ServiceInfo *prometheus.GaugeVec
}

// New constructs and registers every series under namespace/subsystem.
func New(namespace, subsystem string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Completion cache hits by tier.",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Completion cache misses.",
			},
			[]string{"tier"},
		),
		CacheIOErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_io_errors_total",
				Help:      "Cache tier I/O errors, swallowed as misses per the cache-io error policy.",
			},
			[]string{"tier", "op"},
		),

		ProviderRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_requests_total",
				Help:      "Completion provider requests by model and outcome.",
			},
			[]string{"model", "status"},
		),
		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_request_duration_seconds",
				Help:      "Completion provider call latency.",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"model"},
		),
		ProviderRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_retries_total",
				Help:      "Retry attempts against the completion provider.",
			},
			[]string{"model"},
		),

		PIIDetectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pii_detections_total",
				Help:      "Sensitive-value detections by kind.",
			},
			[]string{"kind"},
		),
		AuditIOErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "audit_io_errors_total",
				Help:      "Audit sink persistence failures, swallowed per the audit-io error policy.",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Static service build info; value is always 1.",
			},
			[]string{"version", "environment"},
		),
	}
}

// Handler returns the HTTP handler that serves the registered series.
func Handler() http.Handler {
	return promhttp.Handler()
}
