// Package logging builds the zap logger shared by the service and the CLI
package logging

import (
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/config"
)

// New creates a structured logger from the log configuration
func New(cfg config.LogConfig, development bool) (*zap.Logger, error) {
	var zapConfig zap.Config
	if development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "eckcut")), nil
}

// MustNew is New that falls back to a production logger instead of failing
func MustNew(cfg config.LogConfig, development bool) *zap.Logger {
	logger, err := New(cfg, development)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
