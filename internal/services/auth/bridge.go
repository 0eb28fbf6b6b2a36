package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/session"
)

// State is a step of a capture run
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingLogin      State = "awaiting_login"
	StateExtractingCookies  State = "extracting_cookies"
	StatePersisted          State = "persisted"
	StateExtractionFailed   State = "extraction_failed"
	StateTransmitted        State = "transmitted"
	StateTransmissionFailed State = "transmission_failed"
)

// Succeeded reports whether the run ended with the session accepted by its owner
func (s State) Succeeded() bool {
	return s == StatePersisted || s == StateTransmitted
}

// CookieExtractor is the interactive browser session a human logs in through
type CookieExtractor interface {
	// Open starts the session and shows the login page
	Open(ctx context.Context) error
	// Cookies returns every cookie the session holds
	Cookies(ctx context.Context) ([]models.Cookie, error)
	// Close releases the session. Safe to call more than once.
	Close() error
}

// Confirmer blocks until a human asserts the login is complete
type Confirmer interface {
	WaitForConfirmation(ctx context.Context) error
}

// SessionSink delivers captured cookies to whoever owns the session store
type SessionSink interface {
	Name() string
	// Remote reports whether delivery crosses a process boundary
	Remote() bool
	Deliver(ctx context.Context, cookies []models.Cookie) error
}

// Observer is told about every state transition
type Observer func(state State, detail string)

// BridgeResult describes a finished run
type BridgeResult struct {
	RunID       string    `json:"run_id"`
	State       State     `json:"state"`
	Sink        string    `json:"sink"`
	CookieCount int       `json:"cookie_count"`
	LocalCopy   string    `json:"local_copy,omitempty"`
	Warnings    []string  `json:"warnings,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// BridgeOptions configures a Bridge
type BridgeOptions struct {
	// LocalCopy keeps the cookies on disk when a remote delivery fails. Optional.
	LocalCopy interfaces.SessionStorage
	Observer  Observer
}

// Bridge runs the capture: human login, cookie extraction, delivery.
// Runs are serialised; a second run waits and then fully supersedes the first.
type Bridge struct {
	extractor CookieExtractor
	confirmer Confirmer
	sink      SessionSink
	options   BridgeOptions
	logger    arbor.ILogger
	mu        sync.Mutex
}

// NewBridge creates a capture bridge
func NewBridge(extractor CookieExtractor, confirmer Confirmer, sink SessionSink, options BridgeOptions, logger arbor.ILogger) *Bridge {
	return &Bridge{
		extractor: extractor,
		confirmer: confirmer,
		sink:      sink,
		options:   options,
		logger:    logger,
	}
}

// Run performs one capture. The result is returned even on failure and carries the final state.
func (b *Bridge) Run(ctx context.Context) (*BridgeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := &BridgeResult{
		RunID:     uuid.New().String(),
		Sink:      b.sink.Name(),
		StartedAt: time.Now(),
	}
	defer func() { result.FinishedAt = time.Now() }()

	b.transition(result, StateIdle, "")

	if err := b.extractor.Open(ctx); err != nil {
		b.transition(result, StateExtractionFailed, err.Error())
		_ = b.extractor.Close()
		return result, fmt.Errorf("%w: failed to open browser session: %v", models.ErrExtractionFailed, err)
	}
	defer func() {
		if err := b.extractor.Close(); err != nil {
			b.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to close browser session")
		}
	}()

	b.transition(result, StateAwaitingLogin, "")
	if err := b.confirmer.WaitForConfirmation(ctx); err != nil {
		b.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Capture aborted before login was confirmed")
		return result, fmt.Errorf("login not confirmed: %w", err)
	}

	b.transition(result, StateExtractingCookies, "")
	raw, err := b.extractor.Cookies(ctx)
	if err != nil {
		b.transition(result, StateExtractionFailed, err.Error())
		return result, fmt.Errorf("%w: %v", models.ErrExtractionFailed, err)
	}

	cookies, warnings := session.Normalize(raw)
	result.Warnings = warnings
	result.CookieCount = len(cookies)
	if len(cookies) == 0 {
		b.transition(result, StateExtractionFailed, "zero cookies")
		return result, models.ErrExtractionFailed
	}

	if err := b.sink.Deliver(ctx, cookies); err != nil {
		b.transition(result, StateTransmissionFailed, err.Error())
		b.keepLocalCopy(ctx, result, cookies)
		if !errors.Is(err, models.ErrTransmissionFailed) && !errors.Is(err, models.ErrPersistence) {
			err = fmt.Errorf("%w: %v", models.ErrTransmissionFailed, err)
		}
		return result, err
	}

	if b.sink.Remote() {
		b.transition(result, StateTransmitted, fmt.Sprintf("%d cookies", len(cookies)))
	} else {
		b.transition(result, StatePersisted, fmt.Sprintf("%d cookies", len(cookies)))
	}
	return result, nil
}

// keepLocalCopy saves the cookies so a failed delivery can be retried without a new login
func (b *Bridge) keepLocalCopy(ctx context.Context, result *BridgeResult, cookies []models.Cookie) {
	if b.options.LocalCopy == nil || !b.sink.Remote() {
		return
	}
	if err := b.options.LocalCopy.Save(ctx, cookies); err != nil {
		b.logger.Warn().Err(err).Str("run_id", result.RunID).Msg("Failed to keep local copy of cookies")
		return
	}
	result.LocalCopy = b.options.LocalCopy.Path()
	b.logger.Info().
		Str("run_id", result.RunID).
		Str("path", result.LocalCopy).
		Msg("Cookies kept locally - send them later with larder-login push")
}

func (b *Bridge) transition(result *BridgeResult, state State, detail string) {
	previous := result.State
	result.State = state

	event := b.logger.Info()
	if state == StateExtractionFailed || state == StateTransmissionFailed {
		event = b.logger.Error()
	}
	event.
		Str("run_id", result.RunID).
		Str("from", string(previous)).
		Str("to", string(state)).
		Str("detail", detail).
		Msg("Capture state")

	if b.options.Observer != nil {
		b.options.Observer(state, detail)
	}
}
