package status

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

// ReauthHint tells an operator how to recover from a missing or dead session
const ReauthHint = "Run larder-login, sign in to Amazon in the browser window, then press Enter to send the new session"

// Status is the externally visible session state
type Status struct {
	State          models.SessionState  `json:"state"`
	SessionPresent bool                 `json:"session_present"`
	CookieCount    int                  `json:"cookie_count"`
	CookieNames    []string             `json:"cookie_names,omitempty"`
	CapturedAt     *time.Time           `json:"captured_at,omitempty"`
	LastCheck      *models.SessionCheck `json:"last_check,omitempty"`
	ChangedAt      time.Time            `json:"changed_at"`
	Message        string               `json:"message,omitempty"`
}

// NeedsLogin reports whether a human has to capture a new session
func (s *Status) NeedsLogin() bool {
	return s.State == models.SessionAbsent || s.State == models.SessionInvalid
}

// Service tracks the derived session state from store contents and lifecycle events
type Service struct {
	state        models.SessionState
	changedAt    time.Time
	lastCheck    *models.SessionCheck
	mu           sync.RWMutex
	store        interfaces.SessionStorage
	checks       interfaces.CheckStorage
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates a status service. checks may be nil when history is not kept.
func NewService(store interfaces.SessionStorage, checks interfaces.CheckStorage, eventService interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		state:        models.SessionAbsent,
		changedAt:    time.Now(),
		store:        store,
		checks:       checks,
		eventService: eventService,
		logger:       logger,
	}
}

// Initialize derives the starting state from the store and the latest recorded probe
func (s *Service) Initialize(ctx context.Context) {
	session, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, interfaces.ErrSessionNotFound) {
			s.logger.Warn().Err(err).Str("path", s.store.Path()).Msg("Stored session unreadable")
		}
		s.SetState(models.SessionAbsent, "startup")
		return
	}

	state := models.SessionUntested
	if s.checks != nil {
		latest, err := s.checks.GetLatest(ctx)
		if err == nil && !latest.CheckedAt.Before(session.CapturedAt) {
			s.mu.Lock()
			s.lastCheck = latest
			s.mu.Unlock()
			state = latest.SessionState()
		}
	}
	s.SetState(state, "startup")
}

// GetState returns the current session state
func (s *Service) GetState() models.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the session state and broadcasts a change
func (s *Service) SetState(state models.SessionState, reason string) {
	s.mu.Lock()
	oldState := s.state
	if oldState == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.changedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info().
		Str("old_state", string(oldState)).
		Str("new_state", string(state)).
		Str("reason", reason).
		Msg("Session state changed")

	if s.eventService == nil {
		return
	}
	_ = s.eventService.Publish(context.Background(), interfaces.Event{
		Type: interfaces.EventStatusChanged,
		Payload: map[string]interface{}{
			"state":     string(state),
			"old_state": string(oldState),
			"reason":    reason,
			"timestamp": time.Now(),
		},
	})
}

// RecordCheck applies a liveness probe result
func (s *Service) RecordCheck(check *models.SessionCheck) {
	s.mu.Lock()
	s.lastCheck = check
	s.mu.Unlock()

	s.SetState(check.SessionState(), "liveness_check")
}

// GetStatus returns the current status. The store is consulted so a session
// written or removed outside this process is reflected immediately.
func (s *Service) GetStatus(ctx context.Context) *Status {
	session, err := s.store.Load(ctx)
	present := err == nil

	s.mu.RLock()
	current, changedAt := s.state, s.changedAt
	s.mu.RUnlock()

	// An invalidated session is cleared from the store, so invalid outlives the file
	switch {
	case !present && current != models.SessionAbsent && current != models.SessionInvalid:
		s.SetState(models.SessionAbsent, "store_empty")
	case present && current == models.SessionAbsent:
		s.SetState(models.SessionUntested, "store_populated")
	case present && current == models.SessionInvalid && session.CapturedAt.After(changedAt):
		s.SetState(models.SessionUntested, "store_replaced")
	}

	s.mu.RLock()
	status := &Status{
		State:          s.state,
		SessionPresent: present,
		ChangedAt:      s.changedAt,
	}
	if s.lastCheck != nil {
		check := *s.lastCheck
		status.LastCheck = &check
	}
	s.mu.RUnlock()

	if present {
		status.CookieCount = len(session.Cookies)
		status.CookieNames = session.CookieNames()
		capturedAt := session.CapturedAt
		status.CapturedAt = &capturedAt
	}

	switch status.State {
	case models.SessionAbsent:
		status.Message = "No session captured. " + ReauthHint
	case models.SessionInvalid:
		status.Message = "Session rejected by Amazon. " + ReauthHint
	case models.SessionUnreachable:
		status.Message = "Last liveness check could not reach Amazon; the session was kept"
	case models.SessionUntested:
		status.Message = "Session captured but not yet verified"
	}

	return status
}

// SubscribeToSessionEvents keeps the state in line with session lifecycle events
func (s *Service) SubscribeToSessionEvents() error {
	if s.eventService == nil {
		return nil
	}

	handlers := map[interfaces.EventType]interfaces.EventHandler{
		interfaces.EventSessionCaptured: func(ctx context.Context, event interfaces.Event) error {
			s.mu.Lock()
			s.lastCheck = nil
			s.mu.Unlock()
			s.SetState(models.SessionUntested, "captured")
			return nil
		},
		interfaces.EventSessionInvalidated: func(ctx context.Context, event interfaces.Event) error {
			s.SetState(models.SessionInvalid, "invalidated")
			return nil
		},
		interfaces.EventSessionCleared: func(ctx context.Context, event interfaces.Event) error {
			s.SetState(models.SessionAbsent, "cleared")
			return nil
		},
	}

	for eventType, handler := range handlers {
		if err := s.eventService.Subscribe(eventType, handler); err != nil {
			return err
		}
	}

	s.logger.Debug().Msg("Status service subscribed to session events")
	return nil
}
