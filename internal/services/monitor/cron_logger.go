package monitor

import (
	"fmt"

	"github.com/ternarybob/arbor"
)

// cronLogger adapts arbor to cron.Logger
type cronLogger struct {
	logger arbor.ILogger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	event := l.logger.Debug()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		event = event.Str(fmt.Sprint(keysAndValues[i]), fmt.Sprint(keysAndValues[i+1]))
	}
	event.Msg("cron: " + msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	event := l.logger.Error().Err(err)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		event = event.Str(fmt.Sprint(keysAndValues[i]), fmt.Sprint(keysAndValues[i+1]))
	}
	event.Msg("cron: " + msg)
}
