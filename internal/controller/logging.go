package controller

import (
	"path/filepath"

	charmlog "github.com/charmbracelet/log"

	"github.com/localcue/dictate/internal/config"
	"github.com/localcue/dictate/internal/logging"
)

func newLogger(cfg config.Config, dataDir string) (*charmlog.Logger, error) {
	return logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		FileLogging: cfg.Logging.FileLogging,
		LogsDir:     filepath.Join(dataDir, "logs"),
	})
}
