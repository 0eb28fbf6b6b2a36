package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/storage/filestore"
)

type fakeChecker struct {
	err     error
	items   []models.ListItem
	delay   time.Duration
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeChecker) CheckSession(ctx context.Context) ([]models.ListItem, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

type memoryChecks struct {
	mu     sync.Mutex
	checks []*models.SessionCheck
}

func (m *memoryChecks) SaveCheck(_ context.Context, check *models.SessionCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check)
	return nil
}

func (m *memoryChecks) GetLatest(context.Context) (*models.SessionCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.checks) == 0 {
		return nil, interfaces.ErrCheckNotFound
	}
	return m.checks[len(m.checks)-1], nil
}

func (m *memoryChecks) ListRecent(_ context.Context, limit int) ([]*models.SessionCheck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.SessionCheck(nil), m.checks...), nil
}

func (m *memoryChecks) Prune(_ context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.checks) <= keep {
		return 0, nil
	}
	removed := len(m.checks) - keep
	m.checks = m.checks[removed:]
	return removed, nil
}

func (m *memoryChecks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.checks)
}

type recordedChecks struct {
	mu     sync.Mutex
	checks []*models.SessionCheck
}

func (r *recordedChecks) RecordCheck(check *models.SessionCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, check)
}

func newTestMonitor(t *testing.T, checker *fakeChecker, withSession bool, config Config) (*Service, *filestore.SessionStorage, *memoryChecks, *recordedChecks) {
	t.Helper()
	logger := arbor.NewLogger()
	store := filestore.NewSessionStorage(filepath.Join(t.TempDir(), "cookies.json"), logger)
	if withSession {
		require.NoError(t, store.Save(context.Background(), []models.Cookie{{Name: "session-id", Value: "v"}}))
	}
	checks := &memoryChecks{}
	recorder := &recordedChecks{}
	return NewService(checker, store, checks, recorder, nil, nil, config, logger), store, checks, recorder
}

func TestMonitor_NoSessionIsNoop(t *testing.T) {
	checker := &fakeChecker{}
	monitor, _, checks, recorder := newTestMonitor(t, checker, false, Config{Interval: time.Minute})

	check := monitor.RunNow(context.Background())
	assert.Equal(t, models.CheckSkipped, check.Outcome)
	assert.Equal(t, models.SessionAbsent, check.SessionState())
	assert.Equal(t, int32(0), checker.calls.Load())
	assert.Equal(t, 0, checks.count())
	assert.Len(t, recorder.checks, 1)
}

func TestMonitor_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		want       models.CheckOutcome
		wantStatus int
	}{
		{"valid", nil, models.CheckValid, 200},
		{"auth invalid", &models.UpstreamError{Class: models.ErrAuthInvalid, StatusCode: 401}, models.CheckAuthInvalid, 401},
		{"transient", &models.UpstreamError{Class: models.ErrTransient, StatusCode: 503}, models.CheckTransient, 503},
		{"shape", models.ErrShape, models.CheckFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeChecker{err: tt.err, items: make([]models.ListItem, 3)}
			monitor, store, checks, recorder := newTestMonitor(t, checker, true, Config{Interval: time.Minute, HistoryLimit: 10})

			check := monitor.RunNow(context.Background())
			assert.Equal(t, tt.want, check.Outcome)
			assert.Equal(t, tt.wantStatus, check.StatusCode)
			assert.False(t, check.CapturedAt.IsZero())

			// Never clears, whatever the outcome
			assert.True(t, store.Exists(context.Background()))
			assert.Equal(t, 1, checks.count())
			require.Len(t, recorder.checks, 1)
			assert.Same(t, check, recorder.checks[0])
		})
	}
}

func TestMonitor_CheckTimeoutIsTransient(t *testing.T) {
	checker := &fakeChecker{delay: time.Second}
	monitor, _, _, _ := newTestMonitor(t, checker, true, Config{Interval: time.Minute, CheckTimeout: 20 * time.Millisecond})

	check := monitor.RunNow(context.Background())
	assert.Equal(t, models.CheckTransient, check.Outcome)
}

func TestMonitor_PrunesHistory(t *testing.T) {
	checker := &fakeChecker{}
	monitor, _, checks, _ := newTestMonitor(t, checker, true, Config{Interval: time.Minute, HistoryLimit: 2})

	for i := 0; i < 5; i++ {
		monitor.RunNow(context.Background())
	}
	assert.Equal(t, 2, checks.count())
}

func TestMonitor_StartRejectsSubSecondInterval(t *testing.T) {
	monitor, _, _, _ := newTestMonitor(t, &fakeChecker{}, true, Config{Interval: 100 * time.Millisecond})
	assert.Error(t, monitor.Start())
	assert.False(t, monitor.IsRunning())
}

func TestMonitor_ScheduledChecksNeverOverlap(t *testing.T) {
	if testing.Short() {
		t.Skip("waits on the real schedule")
	}

	checker := &fakeChecker{delay: 1500 * time.Millisecond}
	monitor, _, _, _ := newTestMonitor(t, checker, true, Config{Interval: time.Second, CheckTimeout: 5 * time.Second})

	require.NoError(t, monitor.Start())
	assert.Error(t, monitor.Start())

	time.Sleep(3500 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, monitor.Stop(ctx))

	assert.Equal(t, int32(1), checker.maxSeen.Load())
	assert.GreaterOrEqual(t, checker.calls.Load(), int32(2))
}
