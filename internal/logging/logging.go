// Package logging builds the leveled console + rotating-file logger used
// by every other package: github.com/charmbracelet/log for leveled output,
// gopkg.in/natefinch/lumberjack.v2 for rotation.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the log level and whether a rotating file sink is added
// alongside the console writer.
type Config struct {
	Level       string // "debug", "info", "warn", "error"
	FileLogging bool
	LogsDir     string // used only when FileLogging is true
}

// New builds a *log.Logger writing to stdout, and additionally to a rotating
// file under cfg.LogsDir when cfg.FileLogging is set. The file rotates by
// size (10 MB) and backups older than 7 days are removed; there is no
// rotation at day boundaries.
func New(cfg Config) (*log.Logger, error) {
	var w io.Writer = os.Stdout

	if cfg.FileLogging {
		if err := os.MkdirAll(cfg.LogsDir, 0o755); err != nil {
			return nil, err
		}
		fileSink := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDir, "dictated.log"),
			MaxSize:    10, // MB
			MaxAge:     7,  // days
			MaxBackups: 5,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, fileSink)
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})
	logger.SetLevel(parseLevel(cfg.Level))
	return logger, nil
}

func parseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
