package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/common"
	"github.com/ternarybob/larder/internal/interfaces"
)

// Manager implements the StorageManager interface.
// The session itself lives in a plain file; Badger holds the check history.
type Manager struct {
	db      *BadgerDB
	session interfaces.SessionStorage
	checks  interfaces.CheckStorage
	logger  arbor.ILogger
}

// NewManager opens the Badger database and pairs it with the session store
func NewManager(logger arbor.ILogger, config *common.BadgerConfig, session interfaces.SessionStorage) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		session: session,
		checks:  NewCheckStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")

	return manager, nil
}

// SessionStorage returns the session store
func (m *Manager) SessionStorage() interfaces.SessionStorage {
	return m.session
}

// CheckStorage returns the liveness history store
func (m *Manager) CheckStorage() interfaces.CheckStorage {
	return m.checks
}

// Close closes the database
func (m *Manager) Close() error {
	return m.db.Close()
}

// Ensure Manager implements interfaces.StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
