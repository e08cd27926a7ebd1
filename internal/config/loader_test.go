package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetsync/internal/catalog"
	"targetsync/pkg/logging"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	logging.InitForCLI(logging.LevelInfo, &bytes.Buffer{})
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultConnectorName, cfg.Connector.Name)
	assert.Equal(t, catalog.SyncBothDirections, cfg.Connector.PermittedSynchronization)
	assert.Equal(t, SourceFile, cfg.Source.Type)
	assert.Equal(t, filepath.Join(dir, DefaultTargetsFile), cfg.Source.File.Path)
	assert.Equal(t, filepath.Join(dir, "snapshots"), cfg.Workers.SnapshotDir)
	assert.Equal(t, DefaultRefreshInterval, cfg.Connector.RefreshIntervalDuration())
	assert.Equal(t, DefaultStopTimeout, cfg.Connector.StopTimeoutDuration())
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	logging.InitForCLI(logging.LevelInfo, &bytes.Buffer{})
	dir := t.TempDir()
	writeConfig(t, dir, `
connector:
  name: catalog-sync
  permittedSynchronization: none
  refreshInterval: 0s
  pageSize: 25
  stopTimeout: 3s
  listenForEvents: false
  configuration:
    region: eu-west-1
    retries: 3
source:
  type: sqlite
  sqlite:
    dsn: catalog.db
workers:
  defaultKind: snapshot
  elementTypes:
    table: log
logging:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "catalog-sync", cfg.Connector.Name)
	assert.Equal(t, catalog.SyncNone, cfg.Connector.PermittedSynchronization)
	assert.Equal(t, time.Duration(0), cfg.Connector.RefreshIntervalDuration())
	assert.Equal(t, 3*time.Second, cfg.Connector.StopTimeoutDuration())
	assert.Equal(t, 25, cfg.Connector.PageSize)
	assert.False(t, cfg.Connector.ListenForEvents)
	assert.True(t, cfg.Connector.RetryFailedConnectors, "unset keys keep their defaults")
	assert.Equal(t, map[string]any{"region": "eu-west-1", "retries": 3}, cfg.Connector.Configuration)
	assert.Equal(t, SourceSQLite, cfg.Source.Type)
	assert.Equal(t, filepath.Join(dir, "catalog.db"), cfg.Source.SQLite.DSN)
	assert.Equal(t, map[string]string{"table": "log"}, cfg.Workers.ElementTypes)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfig_SQLiteSpecialDSNsUntouched(t *testing.T) {
	logging.InitForCLI(logging.LevelInfo, &bytes.Buffer{})
	for _, dsn := range []string{":memory:", "file:catalog.db?cache=shared", "/abs/catalog.db"} {
		dir := t.TempDir()
		writeConfig(t, dir, "source:\n  type: sqlite\n  sqlite:\n    dsn: \""+dsn+"\"\n")

		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, dsn, cfg.Source.SQLite.DSN)
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	logging.InitForCLI(logging.LevelInfo, &bytes.Buffer{})
	dir := t.TempDir()
	writeConfig(t, dir, "connector: [unclosed")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	logging.InitForCLI(logging.LevelInfo, &bytes.Buffer{})
	dir := t.TempDir()
	writeConfig(t, dir, `
connector:
  permittedSynchronization: sideways
  stopTimeout: soon
source:
  type: ftp
`)

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permittedSynchronization")
	assert.Contains(t, err.Error(), "stopTimeout")
	assert.Contains(t, err.Error(), "source.type")
}
