package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/common"
	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

// SessionChecker performs one authenticated read without side effects on the store
type SessionChecker interface {
	CheckSession(ctx context.Context) ([]models.ListItem, error)
}

// CheckRecorder receives every probe result
type CheckRecorder interface {
	RecordCheck(check *models.SessionCheck)
}

// Config holds the monitor schedule
type Config struct {
	Interval     time.Duration
	CheckTimeout time.Duration
	HistoryLimit int
}

// Service periodically probes the stored session.
// It reports and records but never clears the session; request paths own that decision.
type Service struct {
	checker  SessionChecker
	store    interfaces.SessionStorage
	checks   interfaces.CheckStorage
	recorder CheckRecorder
	events   interfaces.EventService
	metrics  interfaces.MetricsRecorder
	config   Config
	cron     *cron.Cron
	logger   arbor.ILogger
	mu       sync.Mutex // Protects running
	checkMu  sync.Mutex // Serialises scheduled and on-demand probes
	running  bool
}

// NewService creates a liveness monitor. checks, recorder, events and metrics may be nil.
func NewService(
	checker SessionChecker,
	store interfaces.SessionStorage,
	checks interfaces.CheckStorage,
	recorder CheckRecorder,
	events interfaces.EventService,
	metrics interfaces.MetricsRecorder,
	config Config,
	logger arbor.ILogger,
) *Service {
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 20 * time.Second
	}
	cronLogger := &cronLogger{logger: logger}
	return &Service{
		checker:  checker,
		store:    store,
		checks:   checks,
		recorder: recorder,
		events:   events,
		metrics:  metrics,
		config:   config,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
	}
}

// Start schedules the probe and runs the first one in the background
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("monitor already running")
	}

	schedule := "@every " + s.config.Interval.String()
	if err := common.ValidateMonitorSchedule(s.config.Interval.String()); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to add monitor schedule: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Dur("check_timeout", s.config.CheckTimeout).
		Msg("Liveness monitor started")

	common.SafeGo(s.logger, "monitor-initial-check", s.runScheduled)
	return nil
}

// Stop halts the schedule and waits for an in-flight probe up to ctx
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("Liveness monitor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("monitor stop: %w", ctx.Err())
	}
}

// IsRunning reports whether the schedule is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the probe period
func (s *Service) Interval() time.Duration {
	return s.config.Interval
}

// RunNow probes immediately and returns the result
func (s *Service) RunNow(ctx context.Context) *models.SessionCheck {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	return s.check(ctx)
}

func (s *Service) runScheduled() {
	s.checkMu.Lock()
	defer s.checkMu.Unlock()
	s.check(context.Background())
}

func (s *Service) check(ctx context.Context) *models.SessionCheck {
	start := time.Now()
	check := &models.SessionCheck{CheckedAt: start}

	session, err := s.store.Load(ctx)
	if err != nil {
		check.Outcome = models.CheckSkipped
		check.Detail = "no session captured"
		if !errors.Is(err, interfaces.ErrSessionNotFound) {
			check.Detail = err.Error()
			s.logger.Warn().Err(err).Msg("Liveness check skipped - stored session unreadable")
		} else {
			s.logger.Debug().Msg("Liveness check skipped - no session captured")
		}
		s.report(ctx, check, false)
		return check
	}
	check.CapturedAt = session.CapturedAt

	checkCtx, cancel := context.WithTimeout(ctx, s.config.CheckTimeout)
	items, err := s.checker.CheckSession(checkCtx)
	cancel()
	check.Duration = time.Since(start)

	var upstreamErr *models.UpstreamError
	if errors.As(err, &upstreamErr) {
		check.StatusCode = upstreamErr.StatusCode
	}

	switch {
	case err == nil:
		check.Outcome = models.CheckValid
		check.StatusCode = 200
		check.ItemCount = len(items)
		s.logger.Info().
			Int("items", check.ItemCount).
			Dur("duration", check.Duration).
			Msg("Liveness check passed")
	case errors.Is(err, models.ErrUnauthenticated):
		// Cleared between the load and the request
		check.Outcome = models.CheckSkipped
		check.Detail = "no session captured"
	case errors.Is(err, models.ErrAuthInvalid):
		check.Outcome = models.CheckAuthInvalid
		check.Detail = err.Error()
		s.logger.Warn().
			Err(err).
			Int("status_code", check.StatusCode).
			Msg("Liveness check failed - session rejected, login required")
	case errors.Is(err, models.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		check.Outcome = models.CheckTransient
		check.Detail = err.Error()
		s.logger.Error().Err(err).Msg("Liveness check failed - upstream unreachable")
	default:
		check.Outcome = models.CheckFailed
		check.Detail = err.Error()
		s.logger.Error().Err(err).Msg("Liveness check failed")
	}

	s.report(ctx, check, check.Outcome != models.CheckSkipped)
	return check
}

func (s *Service) report(ctx context.Context, check *models.SessionCheck, persist bool) {
	if s.metrics != nil {
		s.metrics.RecordSessionCheck(string(check.Outcome))
	}

	if persist && s.checks != nil {
		if err := s.checks.SaveCheck(ctx, check); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to record liveness check")
		} else if s.config.HistoryLimit > 0 {
			if _, err := s.checks.Prune(ctx, s.config.HistoryLimit); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to prune liveness history")
			}
		}
	}

	if s.recorder != nil {
		s.recorder.RecordCheck(check)
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventLivenessChecked,
			Payload: check,
		})
	}
}
