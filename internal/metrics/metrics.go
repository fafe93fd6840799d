// Package metrics defines the Prometheus collectors shared by both the
// server and client daemons, exposed at /metrics on each role's HTTP
// surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector a daemon registers. Both roles construct
// one with their own registerer so server and client metrics never collide
// when run in the same process (e.g. in tests).
type Metrics struct {
	TickDuration   prometheus.Histogram
	TickErrors     prometheus.Counter
	ActiveJobs     prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
	DeltaBytesSent prometheus.Counter
}

// New registers and returns a Metrics bundle under reg, labelled by role
// ("server" or "client") so both daemons' series stay distinguishable when
// scraped from a shared Prometheus target.
func New(reg prometheus.Registerer, role string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "relique",
			Subsystem:   role,
			Name:        "tick_duration_seconds",
			Help:        "Duration of a single run-loop tick.",
			ConstLabels: prometheus.Labels{"role": role},
			Buckets:     prometheus.DefBuckets,
		}),
		TickErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "relique",
			Subsystem:   role,
			Name:        "tick_errors_total",
			Help:        "Number of run-loop ticks that returned an error.",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "relique",
			Subsystem:   role,
			Name:        "active_jobs",
			Help:        "Number of backup jobs currently Active.",
			ConstLabels: prometheus.Labels{"role": role},
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "relique",
			Subsystem:   role,
			Name:        "http_requests_total",
			Help:        "HTTP requests served, by route and status class.",
			ConstLabels: prometheus.Labels{"role": role},
		}, []string{"route", "status"}),
		DeltaBytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "relique",
			Subsystem:   role,
			Name:        "delta_bytes_total",
			Help:        "Total bytes of delta payload transferred.",
			ConstLabels: prometheus.Labels{"role": role},
		}),
	}
}
