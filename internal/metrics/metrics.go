// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Metrics carries every collector the service records into. Each
// instance owns its registry so tests never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	JobsTotal      *prometheus.CounterVec
	ItemFailures   prometheus.Counter
	RenderDuration prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicepress_print_jobs_total",
			Help: "Print jobs by type and terminal status.",
		}, []string{"type", "status"}),
		ItemFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicepress_job_item_failures_total",
			Help: "Individual order failures inside bulk jobs.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "invoicepress_render_duration_seconds",
			Help:    "Time spent generating a single invoice artifact.",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicepress_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invoicepress_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.JobsTotal,
		m.ItemFailures,
		m.RenderDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
