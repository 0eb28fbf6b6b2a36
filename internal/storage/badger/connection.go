package badger

import (
	"fmt"
	"os"
	"strings"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/larder/internal/common"
)

// Check records are tiny; the default 1GB value log would dwarf the data
const valueLogFileSize = 16 << 20

// BadgerDB owns the badgerhold store holding liveness history
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewBadgerDB opens the database at config.Path, creating the directory.
// With ResetOnStartup the previous history is discarded first.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if err := os.RemoveAll(config.Path); err != nil {
			logger.Warn().Err(err).Str("path", config.Path).Msg("Could not reset check history")
		}
	}
	if err := os.MkdirAll(config.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", config.Path, err)
	}

	options := badgerhold.DefaultOptions
	options.Options = dgbadger.DefaultOptions(config.Path).
		WithLogger(&dbLogger{logger: logger}).
		WithValueLogFileSize(valueLogFileSize).
		WithNumVersionsToKeep(1)

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open check history at %s: %w", config.Path, err)
	}

	logger.Debug().Str("path", config.Path).Msg("Check history opened")
	return &BadgerDB{store: store, logger: logger}, nil
}

// Store returns the badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close flushes and closes the database
func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

// dbLogger routes Badger's own messages into arbor; its info chatter goes to debug
type dbLogger struct {
	logger arbor.ILogger
}

var _ dgbadger.Logger = (*dbLogger)(nil)

func (l *dbLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Str("component", "badger").Msg(sprintf(format, args))
}

func (l *dbLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Str("component", "badger").Msg(sprintf(format, args))
}

func (l *dbLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Str("component", "badger").Msg(sprintf(format, args))
}

func (l *dbLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Str("component", "badger").Msg(sprintf(format, args))
}

func sprintf(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
