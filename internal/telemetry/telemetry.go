// Package telemetry implements a Prometheus-backed UISink: every job
// status transition increments a gauge for its new status (and, where the
// job advanced past an earlier status, decrements the gauge for the one
// it left), plus a jobs_total gauge set from each Update's total, all served on
// /metrics (SPEC_FULL.md §4.9/§12).
package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relief-render/reliefrender/internal/wire"
)

// Sink is a uisink.UISink that tracks one gauge per job status plus a
// total-jobs gauge, registered against its own registry so multiple Sinks
// (one per process) never collide on prometheus's default registry.
type Sink struct {
	registry *prometheus.Registry
	byStatus *prometheus.GaugeVec
	total    prometheus.Gauge

	mu       sync.Mutex
	lastSeen map[uint16]wire.Status
}

// NewSink creates a Sink and registers its gauges against a fresh
// registry, so a worker and a primary running in the same binary (as in
// tests) never fight over prometheus's global DefaultRegisterer.
func NewSink(namespace string) *Sink {
	reg := prometheus.NewRegistry()
	s := &Sink{
		registry: reg,
		byStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_by_status",
			Help:      "Number of jobs currently at each dispatch/render status.",
		}, []string{"status"}),
		total: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Total number of jobs this run expects to complete.",
		}),
		lastSeen: make(map[uint16]wire.Status),
	}
	reg.MustRegister(s.byStatus, s.total)
	return s
}

// Update implements uisink.UISink: moves jobID's count from its previous
// status gauge (if any) to status's gauge, and sets the jobs_total gauge
// to total.
func (s *Sink) Update(jobID uint16, status wire.Status, total int) {
	s.total.Set(float64(total))

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.lastSeen[jobID]; ok {
		if prev == status {
			return
		}
		s.byStatus.WithLabelValues(prev.String()).Dec()
	}
	s.byStatus.WithLabelValues(status.String()).Inc()
	s.lastSeen[jobID] = status
}

// Handler returns an http.Handler serving this Sink's metrics in
// Prometheus exposition format, mounted at /metrics by the caller.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ListenAndServe starts an HTTP server on addr with only /metrics mounted,
// returning once the listener fails (typically on process shutdown).
func (s *Sink) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	return http.ListenAndServe(addr, mux)
}
