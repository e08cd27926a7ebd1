package app

import (
	"io"

	"targetsync/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// LogFormat overrides logging.format from config.yaml when set.
	LogFormat string

	// Custom configuration directory (optional). Defaults to
	// ~/.config/targetsync.
	ConfigPath string

	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer

	// Settings is the loaded config.yaml. When set before NewApplication,
	// loading from disk is skipped.
	Settings *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, logFormat, configPath string) *Config {
	return &Config{
		Debug:      debug,
		LogFormat:  logFormat,
		ConfigPath: configPath,
	}
}
