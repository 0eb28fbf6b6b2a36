package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	logFileName   = "larder.log"
	logMaxSize    = 50 * 1024 * 1024
	logMaxBackups = 5
)

// InitLogger builds the server logger from the [logging] section.
// Unknown output names are ignored; with no usable output the console is used.
func InitLogger(config *Config) arbor.ILogger {
	timeFormat := config.Logging.TimeFormat
	if timeFormat == "" {
		timeFormat = "15:04:05"
	}

	logger := arbor.NewLogger()
	writers := 0

	for _, output := range config.Logging.Output {
		switch output {
		case "file":
			dir := config.Logging.Dir
			if dir == "" {
				dir = "./logs"
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: log directory %s unavailable, file logging disabled: %v\n", dir, err)
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(dir, logFileName),
				TimeFormat: timeFormat,
				MaxSize:    logMaxSize,
				MaxBackups: logMaxBackups,
				OutputType: models.OutputFormatLogfmt,
			})
			writers++
		case "stdout", "console":
			logger = logger.WithConsoleWriter(consoleWriter(timeFormat))
			writers++
		}
	}

	if writers == 0 {
		logger = logger.WithConsoleWriter(consoleWriter(timeFormat))
	}

	return logger.WithLevelFromString(config.Logging.Level)
}

// NewQuietLogger returns a console-only logger at the given level.
// Used by processes whose stdout carries a protocol or an interactive prompt.
func NewQuietLogger(level string) arbor.ILogger {
	return arbor.NewLogger().
		WithConsoleWriter(consoleWriter("15:04:05")).
		WithLevelFromString(level)
}

func consoleWriter(timeFormat string) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: timeFormat,
		OutputType: models.OutputFormatLogfmt,
	}
}
