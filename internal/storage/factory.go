package storage

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/common"
	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/storage/badger"
	"github.com/ternarybob/larder/internal/storage/filestore"
)

// NewStorageManager creates the session file store and the Badger check history from config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	session := filestore.NewSessionStorage(config.Session.Path, logger)
	return badger.NewManager(logger, &config.Storage.Badger, session)
}
