package interfaces

import "time"

// MetricsRecorder records operational metrics.
// Implementations: metrics.PrometheusRecorder when enabled, metrics.NoopRecorder otherwise.
type MetricsRecorder interface {
	// RecordUpstreamRequest records one classified upstream call
	RecordUpstreamRequest(method string, outcome string, duration time.Duration)

	// RecordSessionCheck records one liveness probe outcome
	RecordSessionCheck(outcome string)

	// RecordSessionSaved records a session replacement
	RecordSessionSaved(cookieCount int)

	// RecordSessionCleared records a session removal and why
	RecordSessionCleared(reason string)
}
