package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

// CheckStorage persists liveness probe history
type CheckStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCheckStorage creates a new CheckStorage instance
func NewCheckStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CheckStorage {
	return &CheckStorage{
		db:     db,
		logger: logger,
	}
}

// SaveCheck stores a probe result, assigning an ID and timestamp when missing
func (s *CheckStorage) SaveCheck(ctx context.Context, check *models.SessionCheck) error {
	if check.ID == "" {
		check.ID = uuid.New().String()
	}
	if check.CheckedAt.IsZero() {
		check.CheckedAt = time.Now()
	}

	if err := s.db.Store().Upsert(check.ID, check); err != nil {
		return fmt.Errorf("failed to save session check: %w", err)
	}
	return nil
}

// GetLatest returns the most recent probe or interfaces.ErrCheckNotFound
func (s *CheckStorage) GetLatest(ctx context.Context) (*models.SessionCheck, error) {
	checks, err := s.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, interfaces.ErrCheckNotFound
	}
	return checks[0], nil
}

// ListRecent returns up to limit probes, newest first
func (s *CheckStorage) ListRecent(ctx context.Context, limit int) ([]*models.SessionCheck, error) {
	var checks []models.SessionCheck
	query := badgerhold.Where("ID").Ne("").SortBy("CheckedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&checks, query); err != nil {
		return nil, fmt.Errorf("failed to list session checks: %w", err)
	}

	result := make([]*models.SessionCheck, len(checks))
	for i := range checks {
		result[i] = &checks[i]
	}
	return result, nil
}

// Prune deletes all but the newest keep probes and returns how many were removed
func (s *CheckStorage) Prune(ctx context.Context, keep int) (int, error) {
	var checks []models.SessionCheck
	query := badgerhold.Where("ID").Ne("").SortBy("CheckedAt").Reverse().Skip(keep)
	if err := s.db.Store().Find(&checks, query); err != nil {
		return 0, fmt.Errorf("failed to find session checks to prune: %w", err)
	}

	removed := 0
	for _, check := range checks {
		if err := s.db.Store().Delete(check.ID, &models.SessionCheck{}); err != nil && err != badgerhold.ErrNotFound {
			return removed, fmt.Errorf("failed to delete session check %s: %w", check.ID, err)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Int("kept", keep).Msg("Pruned session check history")
	}
	return removed, nil
}
