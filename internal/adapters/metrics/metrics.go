// Package metrics exports store and install activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/extkit/internal/domain/install"
	"github.com/felixgeelhaar/extkit/internal/domain/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the extkit collectors.
type Metrics struct {
	StoreRequestsTotal   *prometheus.CounterVec
	StoreRequestDuration *prometheus.HistogramVec
	StoreRejectionsTotal *prometheus.CounterVec
	InstallsTotal        *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors and registers them with registry. A nil
// registry gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		StoreRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extkit_store_requests_total",
				Help: "Total number of store catalog requests",
			},
			[]string{"operation", "status"},
		),
		StoreRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extkit_store_request_duration_seconds",
				Help:    "Store catalog request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		StoreRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extkit_store_rejections_total",
				Help: "Total number of store responses rejected by trust checks",
			},
			[]string{"operation", "reason"},
		),
		InstallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extkit_installs_total",
				Help: "Total number of install attempts by final stage",
			},
			[]string{"stage", "result"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.StoreRequestsTotal,
		m.StoreRequestDuration,
		m.StoreRejectionsTotal,
		m.InstallsTotal,
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest implements store.Observer.
func (m *Metrics) ObserveRequest(op string, status int, elapsed time.Duration, _ error) {
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	m.StoreRequestsTotal.WithLabelValues(op, label).Inc()
	m.StoreRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveRejection implements store.Observer. Reasons are cut at the first
// colon so the offending value does not become a label.
func (m *Metrics) ObserveRejection(op, reason string) {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		reason = reason[:i]
	}
	m.StoreRejectionsTotal.WithLabelValues(op, reason).Inc()
}

// ObserveInstall implements install.Observer.
func (m *Metrics) ObserveInstall(stage install.Stage, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.InstallsTotal.WithLabelValues(string(stage), result).Inc()
}

var (
	_ store.Observer   = (*Metrics)(nil)
	_ install.Observer = (*Metrics)(nil)
)
