package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ternarybob/larder/internal/interfaces"
)

// PrometheusRecorder records metrics using Prometheus.
type PrometheusRecorder struct {
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	sessionChecksTotal    *prometheus.CounterVec
	sessionSavedTotal     prometheus.Counter
	sessionCookies        prometheus.Gauge
	sessionClearedTotal   *prometheus.CounterVec
	gatherer              prometheus.Gatherer
}

// NewPrometheusRecorder creates a recorder on a dedicated registry.
// The registry also carries the Go runtime and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewPrometheusRecorderWithRegistry(reg, reg)
}

// NewPrometheusRecorderWithRegistry creates a recorder on the given registry. Use this for testing.
func NewPrometheusRecorderWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *PrometheusRecorder {
	upstreamRequestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_upstream_requests_total",
		Help: "Total upstream list API calls by classified outcome",
	}, []string{"method", "outcome"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "larder_upstream_request_duration_seconds",
		Help:    "Upstream list API call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	sessionChecksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_session_checks_total",
		Help: "Total liveness probes by outcome",
	}, []string{"outcome"})

	sessionSavedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "larder_session_saved_total",
		Help: "Total session captures persisted",
	})

	sessionCookies := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "larder_session_cookies",
		Help: "Cookies in the most recently saved session",
	})

	sessionClearedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "larder_session_cleared_total",
		Help: "Total session removals by reason",
	}, []string{"reason"})

	reg.MustRegister(
		upstreamRequestsTotal,
		upstreamDuration,
		sessionChecksTotal,
		sessionSavedTotal,
		sessionCookies,
		sessionClearedTotal,
	)

	return &PrometheusRecorder{
		upstreamRequestsTotal: upstreamRequestsTotal,
		upstreamDuration:      upstreamDuration,
		sessionChecksTotal:    sessionChecksTotal,
		sessionSavedTotal:     sessionSavedTotal,
		sessionCookies:        sessionCookies,
		sessionClearedTotal:   sessionClearedTotal,
		gatherer:              gatherer,
	}
}

// RecordUpstreamRequest records one classified upstream call.
func (p *PrometheusRecorder) RecordUpstreamRequest(method string, outcome string, duration time.Duration) {
	p.upstreamRequestsTotal.WithLabelValues(method, outcome).Inc()
	p.upstreamDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordSessionCheck records one liveness probe outcome.
func (p *PrometheusRecorder) RecordSessionCheck(outcome string) {
	p.sessionChecksTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionSaved records a session replacement.
func (p *PrometheusRecorder) RecordSessionSaved(cookieCount int) {
	p.sessionSavedTotal.Inc()
	p.sessionCookies.Set(float64(cookieCount))
}

// RecordSessionCleared records a session removal.
func (p *PrometheusRecorder) RecordSessionCleared(reason string) {
	p.sessionClearedTotal.WithLabelValues(reason).Inc()
	p.sessionCookies.Set(0)
}

// Handler serves the registry in the Prometheus exposition format
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Ensure PrometheusRecorder implements interfaces.MetricsRecorder
var _ interfaces.MetricsRecorder = (*PrometheusRecorder)(nil)
