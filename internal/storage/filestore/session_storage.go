package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/session"
)

// SessionStorage keeps the captured session as a JSON file at a single path.
// Writes go through renameio (temp file, fsync, rename into place),
// so a concurrent Load sees either the old or the new payload, never a partial one.
type SessionStorage struct {
	path   string
	mu     sync.Mutex // serialises Save and Clear
	logger arbor.ILogger
}

// NewSessionStorage creates a file-backed session store
func NewSessionStorage(path string, logger arbor.ILogger) *SessionStorage {
	return &SessionStorage{
		path:   path,
		logger: logger,
	}
}

// Path returns the session file location
func (s *SessionStorage) Path() string {
	return s.path
}

// Save atomically replaces the stored session
func (s *SessionStorage) Save(ctx context.Context, cookies []models.Cookie) error {
	normalized, warnings := session.Normalize(cookies)
	for _, w := range warnings {
		s.logger.Warn().Str("path", s.path).Msg("Cookie normalisation: " + w)
	}

	data, err := session.Encode(normalized)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to save session")
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	s.logger.Info().
		Str("path", s.path).
		Int("cookies", len(normalized)).
		Msg("Session saved")

	return nil
}

// Load returns the stored session or interfaces.ErrSessionNotFound
func (s *SessionStorage) Load(ctx context.Context) (*models.Session, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	// Stat and read the same open file so the timestamp matches the content
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat session file: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	cookies, warnings, err := session.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("session file %s: %w", s.path, err)
	}
	for _, w := range warnings {
		s.logger.Warn().Str("path", s.path).Msg("Session file: " + w)
	}

	return &models.Session{
		Cookies:    cookies,
		CapturedAt: info.ModTime(),
		Version:    models.SessionFormatVersion,
	}, nil
}

// Clear removes the stored session. A missing file is not an error.
func (s *SessionStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}

	s.logger.Info().Str("path", s.path).Msg("Session cleared")
	return nil
}

// Exists reports whether a session file is present
func (s *SessionStorage) Exists(ctx context.Context) bool {
	_, err := os.Stat(s.path)
	return err == nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return renameio.WriteFile(path, data, 0o600)
}

// Ensure SessionStorage implements interfaces.SessionStorage
var _ interfaces.SessionStorage = (*SessionStorage)(nil)
