package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/session"
)

// LocalSink writes straight into the session store; capture and serving share a machine
type LocalSink struct {
	store  interfaces.SessionStorage
	logger arbor.ILogger
}

// NewLocalSink creates a sink over store
func NewLocalSink(store interfaces.SessionStorage, logger arbor.ILogger) *LocalSink {
	return &LocalSink{store: store, logger: logger}
}

func (s *LocalSink) Name() string { return "local:" + s.store.Path() }

func (s *LocalSink) Remote() bool { return false }

// Deliver replaces the stored session
func (s *LocalSink) Deliver(ctx context.Context, cookies []models.Cookie) error {
	if err := s.store.Save(ctx, cookies); err != nil {
		return err
	}
	s.logger.Info().Str("path", s.store.Path()).Int("cookie_count", len(cookies)).Msg("Session saved")
	return nil
}

// HandoffSink posts the cookies to the server that owns the session store
type HandoffSink struct {
	url    string
	client *http.Client
	logger arbor.ILogger
}

// NewHandoffSink creates a sink posting to url. timeout bounds the whole exchange.
func NewHandoffSink(url string, timeout time.Duration, logger arbor.ILogger) *HandoffSink {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HandoffSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *HandoffSink) Name() string { return "handoff:" + s.url }

func (s *HandoffSink) Remote() bool { return true }

// Deliver sends the transport encoding and requires a 2xx acknowledgement
func (s *HandoffSink) Deliver(ctx context.Context, cookies []models.Cookie) error {
	payload, err := session.Encode(cookies)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransmissionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransmissionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.logger.Info().Str("url", s.url).Int("cookie_count", len(cookies)).Msg("Sending session to server")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransmissionFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: server answered %d: %s", models.ErrTransmissionFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	s.logger.Info().Int("status_code", resp.StatusCode).Msg("Server accepted session")
	return nil
}
