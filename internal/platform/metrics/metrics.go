package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the dedup service.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	verdictsTotal      *prometheus.CounterVec
	resolveSeconds     prometheus.Histogram
	linksTotal         prometheus.Counter
	confirmationsTotal prometheus.Counter
	resetsTotal        prometheus.Counter
	storedDigests      prometheus.Gauge
	unsafeSenders      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dedup_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dedup_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		verdictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dedup_verdicts_total",
			Help: "Video submissions resolved, by verdict",
		}, []string{"verdict"}),
		resolveSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dedup_resolve_seconds",
			Help:    "Time spent decoding, fingerprinting and committing one submission",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		linksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dedup_link_events_total",
			Help: "Total number of link messages received",
		}),
		confirmationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dedup_confirmations_total",
			Help: "Total number of accepted confirmation messages",
		}),
		resetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dedup_resets_total",
			Help: "Total number of full resets",
		}),
		storedDigests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dedup_stored_digests",
			Help: "Number of digests in the dedup index",
		}),
		unsafeSenders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dedup_unsafe_senders",
			Help: "Number of senders currently marked unsafe",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.verdictsTotal,
		m.resolveSeconds,
		m.linksTotal,
		m.confirmationsTotal,
		m.resetsTotal,
		m.storedDigests,
		m.unsafeSenders,
	)
	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveVerdict counts one resolved submission and how long it took.
func (m *Metrics) ObserveVerdict(verdict string, took time.Duration) {
	m.verdictsTotal.WithLabelValues(verdict).Inc()
	m.resolveSeconds.Observe(took.Seconds())
}

// IncLinks increments the link message counter.
func (m *Metrics) IncLinks() {
	m.linksTotal.Inc()
}

// IncConfirmations increments the confirmation counter.
func (m *Metrics) IncConfirmations() {
	m.confirmationsTotal.Inc()
}

// IncResets increments the reset counter.
func (m *Metrics) IncResets() {
	m.resetsTotal.Inc()
}

// SetStoredDigests sets the stored digests gauge.
func (m *Metrics) SetStoredDigests(n int) {
	m.storedDigests.Set(float64(n))
}

// SetUnsafeSenders sets the unsafe senders gauge.
func (m *Metrics) SetUnsafeSenders(n int) {
	m.unsafeSenders.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
