package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"targetsync/internal/config"
	"targetsync/pkg/logging"
)

// Application bootstraps and runs one catalog connector.
//
// Initialization happens in two phases: NewApplication loads the
// configuration and wires the services, then Serve or ReconcileOnce drives
// them.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication configures logging, loads config.yaml unless cfg.Settings is
// already populated, and initializes the services.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stdout
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}

	// Bootstrap logging from the flags; config.yaml may refine it below.
	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	bootFormat, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logging.Init(bootLevel, bootFormat, logOutput)

	if cfg.Settings == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			configPath, err = config.GetDefaultConfigPath()
			if err != nil {
				return nil, err
			}
		}
		settings, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", configPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", configPath, err)
		}
		cfg.Settings = &settings
	}

	level, format, err := resolveLogging(cfg)
	if err != nil {
		return nil, err
	}
	logging.Init(level, format, logOutput)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func resolveLogging(cfg *Config) (logging.LogLevel, logging.Format, error) {
	level, err := logging.ParseLevel(cfg.Settings.Logging.Level)
	if err != nil {
		return level, logging.FormatText, err
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}

	formatName := cfg.Settings.Logging.Format
	if cfg.LogFormat != "" {
		formatName = cfg.LogFormat
	}
	format, err := logging.ParseFormat(formatName)
	return level, format, err
}

// Services returns the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves until ctx is cancelled or a SIGINT/SIGTERM arrives.
func (a *Application) Run(ctx context.Context) error {
	return runServe(ctx, a.services)
}
