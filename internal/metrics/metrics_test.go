package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_UpstreamRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorderWithRegistry(reg, reg)

	rec.RecordUpstreamRequest("GET", "success", 20*time.Millisecond)
	rec.RecordUpstreamRequest("GET", "success", 30*time.Millisecond)
	rec.RecordUpstreamRequest("PUT", "auth_invalid", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.upstreamRequestsTotal.WithLabelValues("GET", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.upstreamRequestsTotal.WithLabelValues("PUT", "auth_invalid")))
}

func TestPrometheusRecorder_SessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorderWithRegistry(reg, reg)

	rec.RecordSessionSaved(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(rec.sessionCookies))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.sessionSavedTotal))

	rec.RecordSessionCleared("auth_invalid")
	assert.Equal(t, 0.0, testutil.ToFloat64(rec.sessionCookies))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.sessionClearedTotal.WithLabelValues("auth_invalid")))
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorderWithRegistry(reg, reg)
	rec.RecordSessionCheck("valid")

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `larder_session_checks_total{outcome="valid"} 1`))
}

func TestNoopRecorder(t *testing.T) {
	rec := NewNoopRecorder()
	assert.NotPanics(t, func() {
		rec.RecordUpstreamRequest("GET", "success", time.Second)
		rec.RecordSessionCheck("valid")
		rec.RecordSessionSaved(3)
		rec.RecordSessionCleared("manual")
	})
}
