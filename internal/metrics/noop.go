package metrics

import (
	"time"

	"github.com/ternarybob/larder/internal/interfaces"
)

// NoopRecorder is used when metrics are disabled. All methods are safe to call and do nothing.
type NoopRecorder struct{}

// NewNoopRecorder creates a new no-op recorder.
func NewNoopRecorder() *NoopRecorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) RecordUpstreamRequest(method string, outcome string, duration time.Duration) {}

func (n *NoopRecorder) RecordSessionCheck(outcome string) {}

func (n *NoopRecorder) RecordSessionSaved(cookieCount int) {}

func (n *NoopRecorder) RecordSessionCleared(reason string) {}

// Ensure NoopRecorder implements interfaces.MetricsRecorder
var _ interfaces.MetricsRecorder = (*NoopRecorder)(nil)
