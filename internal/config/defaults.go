package config

import (
	"time"

	"targetsync/internal/catalog"
)

const (
	DefaultConnectorName   = "targetsync"
	DefaultRefreshInterval = time.Minute
	DefaultStopTimeout     = 10 * time.Second
	DefaultDebounce        = 500 * time.Millisecond
	DefaultPageSize        = 100
	DefaultTargetsFile     = "targets.yaml"
	DefaultWorkerKind      = "log"
)

// GetDefaultConfig returns the configuration used when no file exists.
func GetDefaultConfig() Config {
	return Config{
		Connector: ConnectorConfig{
			Name:                     DefaultConnectorName,
			PermittedSynchronization: catalog.SyncBothDirections,
			RefreshInterval:          DefaultRefreshInterval.String(),
			PageSize:                 DefaultPageSize,
			StopTimeout:              DefaultStopTimeout.String(),
			ListenForEvents:          true,
			RetryFailedConnectors:    true,
		},
		Source: SourceConfig{
			Type: SourceFile,
			File: FileSourceConfig{
				Path:     DefaultTargetsFile,
				Debounce: DefaultDebounce.String(),
			},
		},
		Workers: WorkersConfig{
			DefaultKind: DefaultWorkerKind,
			SnapshotDir: "snapshots",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
