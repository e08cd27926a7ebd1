package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"targetsync/pkg/logging"
)

const (
	userConfigDir  = ".config/targetsync"
	configFileName = "config.yaml"
)

// GetDefaultConfigPath returns ~/.config/targetsync.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig reads config.yaml from configPath on top of the defaults and
// resolves relative file paths against configPath. The result is validated.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, fmt.Errorf("read %s: %w", configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	cfg.resolvePaths(configPath)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration in %s: %w", configFilePath, err)
	}
	return cfg, nil
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Source.File.Path = resolve(c.Source.File.Path)
	c.Workers.SnapshotDir = resolve(c.Workers.SnapshotDir)
	if dsn := c.Source.SQLite.DSN; dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		c.Source.SQLite.DSN = resolve(dsn)
	}
}
