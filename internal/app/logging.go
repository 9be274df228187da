package app

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/arkilian/telemetrygen/internal/config"
	generrors "github.com/arkilian/telemetrygen/internal/errors"
)

// NewLogger builds the run logger from the log section of the config.
func NewLogger(cfg config.LogConfig, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, generrors.Wrap(generrors.ErrCategoryConfig, generrors.CodeInvalidValue, "invalid log level "+level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
