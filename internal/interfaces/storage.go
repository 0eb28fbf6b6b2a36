package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/larder/internal/models"
)

// ErrSessionNotFound is returned by SessionStorage.Load when nothing has been captured yet.
// It is an expected steady state, not a fault.
var ErrSessionNotFound = errors.New("session not found")

// SessionStorage - the single authoritative location of the captured session
type SessionStorage interface {
	// Save atomically replaces the stored session
	Save(ctx context.Context, cookies []models.Cookie) error

	// Load returns the stored session or ErrSessionNotFound
	Load(ctx context.Context) (*models.Session, error)

	// Clear removes the stored session. Clearing an absent session is not an error.
	Clear(ctx context.Context) error

	// Exists reports whether a session is currently stored
	Exists(ctx context.Context) bool

	// Path returns the location of the stored payload
	Path() string
}

// CheckStorage - history of liveness probes
type CheckStorage interface {
	SaveCheck(ctx context.Context, check *models.SessionCheck) error
	GetLatest(ctx context.Context) (*models.SessionCheck, error)
	ListRecent(ctx context.Context, limit int) ([]*models.SessionCheck, error)
	Prune(ctx context.Context, keep int) (int, error)
}

// ErrCheckNotFound is returned when no liveness probe has been recorded
var ErrCheckNotFound = errors.New("no session check recorded")

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	SessionStorage() SessionStorage
	CheckStorage() CheckStorage
	Close() error
}
