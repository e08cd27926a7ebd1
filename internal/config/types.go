package config

import (
	"time"

	"targetsync/internal/catalog"
	"targetsync/pkg/logging"
)

// Config is the root of config.yaml.
type Config struct {
	Connector ConnectorConfig `yaml:"connector"`
	Source    SourceConfig    `yaml:"source"`
	Workers   WorkersConfig   `yaml:"workers"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ConnectorConfig describes the connector process itself.
type ConnectorConfig struct {
	Name                     string                           `yaml:"name"`
	PermittedSynchronization catalog.PermittedSynchronization `yaml:"permittedSynchronization"`

	// RefreshInterval between sweeps. "0" disables the timer; serve then
	// sweeps at startup and on SIGHUP or POST /reconcile only.
	RefreshInterval string `yaml:"refreshInterval"`
	PageSize        int    `yaml:"pageSize"`
	StopTimeout     string `yaml:"stopTimeout"`

	ListenForEvents       bool `yaml:"listenForEvents"`
	RetryFailedConnectors bool `yaml:"retryFailedConnectors"`

	// Configuration is merged under every target's configuration properties.
	Configuration map[string]any `yaml:"configuration,omitempty"`
}

// SourceType selects the TargetSource implementation.
type SourceType string

const (
	SourceFile       SourceType = "file"
	SourceSQLite     SourceType = "sqlite"
	SourceKubernetes SourceType = "kubernetes"
)

// SourceConfig selects and configures the catalog target source.
type SourceConfig struct {
	Type       SourceType             `yaml:"type"`
	File       FileSourceConfig       `yaml:"file"`
	SQLite     SQLiteSourceConfig     `yaml:"sqlite"`
	Kubernetes KubernetesSourceConfig `yaml:"kubernetes"`
}

type FileSourceConfig struct {
	// Path to the targets YAML file. Relative paths resolve against the
	// configuration directory.
	Path     string `yaml:"path"`
	Debounce string `yaml:"debounce"`
}

type SQLiteSourceConfig struct {
	DSN string `yaml:"dsn"`
}

type KubernetesSourceConfig struct {
	Namespace     string `yaml:"namespace"`
	LabelSelector string `yaml:"labelSelector"`
	Kubeconfig    string `yaml:"kubeconfig"`
}

// WorkersConfig maps target element types to worker kinds.
type WorkersConfig struct {
	DefaultKind  string            `yaml:"defaultKind"`
	ElementTypes map[string]string `yaml:"elementTypes,omitempty"`
	SnapshotDir  string            `yaml:"snapshotDir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	// Address for the /metrics listener. Empty disables it.
	Address string `yaml:"address"`
}

// RefreshIntervalDuration parses RefreshInterval, falling back to the default
// with a warning when it is malformed.
func (c ConnectorConfig) RefreshIntervalDuration() time.Duration {
	return parseDuration("refreshInterval", c.RefreshInterval, DefaultRefreshInterval)
}

// StopTimeoutDuration parses StopTimeout the same way.
func (c ConnectorConfig) StopTimeoutDuration() time.Duration {
	return parseDuration("stopTimeout", c.StopTimeout, DefaultStopTimeout)
}

// DebounceDuration parses the file watcher debounce.
func (c FileSourceConfig) DebounceDuration() time.Duration {
	return parseDuration("source.file.debounce", c.Debounce, DefaultDebounce)
}

func parseDuration(field, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err == nil && d >= 0 {
		return d
	}
	logging.Warn("Config", "Invalid %s %q, using default %s", field, value, fallback)
	return fallback
}
