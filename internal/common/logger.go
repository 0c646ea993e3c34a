package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	logFileName    = "concierge.log"
	logMaxSize     = 50 * 1024 * 1024
	logMaxBackups  = 3
	logTimeFormat  = "15:04:05"
	defaultLogsDir = "logs"
)

type logTargets struct {
	console bool
	file    bool
}

// parseLogOutputs maps [logging] output names onto writers. "stdout" and
// "console" are the same writer.
func parseLogOutputs(outputs []string) logTargets {
	var t logTargets
	for _, output := range outputs {
		switch output {
		case "stdout", "console":
			t.console = true
		case "file":
			t.file = true
		}
	}
	return t
}

// InitLogger builds the process logger from the [logging] section. A logger
// always has at least one writer: if the file cannot be opened, or no output
// is configured, it writes to the console.
func InitLogger(config *Config) arbor.ILogger {
	logger := arbor.NewLogger()
	targets := parseLogOutputs(config.Logging.Output)

	if targets.file {
		dir, err := prepareLogsDir(config.Logging.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file disabled: %v\n", err)
			targets.file = false
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(dir, logFileName),
				TimeFormat: logTimeFormat,
				MaxSize:    logMaxSize,
				MaxBackups: logMaxBackups,
				TextOutput: true,
			})
		}
	}

	if targets.console || !targets.file {
		logger = logger.WithConsoleWriter(models.WriterConfiguration{
			Type:       models.LogWriterTypeConsole,
			TimeFormat: logTimeFormat,
			TextOutput: true,
		})
	}

	return logger.WithLevelFromString(config.Logging.Level)
}

// prepareLogsDir creates dir, defaulting to logs/ beside the executable
func prepareLogsDir(dir string) (string, error) {
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate executable: %w", err)
		}
		dir = filepath.Join(filepath.Dir(exe), defaultLogsDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create logs dir %s: %w", dir, err)
	}
	return dir, nil
}
