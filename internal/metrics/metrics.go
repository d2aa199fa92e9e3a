package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the screener.
// All methods are safe on a nil *Metrics.
type Metrics struct {
	TickersScanned   *prometheus.CounterVec   // labels: run
	TickersSkipped   *prometheus.CounterVec   // labels: reason
	FlowDays         *prometheus.CounterVec   // labels: outcome=fetched|skipped
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome
	RunDuration      *prometheus.HistogramVec // labels: run

	registry *prometheus.Registry
}

// New creates the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		TickersScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idxscreener_tickers_scanned_total",
			Help: "Tickers processed by a screening run",
		}, []string{"run"}),
		TickersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idxscreener_tickers_skipped_total",
			Help: "Tickers excluded from a run (fetch, insufficient, invalid)",
		}, []string{"reason"}),
		FlowDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idxscreener_flow_days_total",
			Help: "Broker flow days fetched or skipped",
		}, []string{"outcome"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idxscreener_provider_requests_total",
			Help: "Upstream data requests by provider and outcome",
		}, []string{"provider", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idxscreener_run_duration_seconds",
			Help:    "Wall time of screening runs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"run"}),
		registry: reg,
	}

	reg.MustRegister(
		m.TickersScanned,
		m.TickersSkipped,
		m.FlowDays,
		m.ProviderRequests,
		m.RunDuration,
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the registry over HTTP
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Scanned(run string) {
	if m == nil {
		return
	}
	m.TickersScanned.WithLabelValues(run).Inc()
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.TickersSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) FlowDay(outcome string) {
	if m == nil {
		return
	}
	m.FlowDays.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProviderRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
}

// ObserveRun records the duration of a run started at start
func (m *Metrics) ObserveRun(run string, start time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(run).Observe(time.Since(start).Seconds())
}
