package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ctrl "sigs.k8s.io/controller-runtime"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("test-subsystem", "test message")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "subsystem=test-subsystem")
}

func TestCLILevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Debug("test", "debug message")
	Info("test", "info message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("Info message should appear at INFO level")
	}
}

func TestErrorIncludesErrorAttribute(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelDebug, &buf)

	Error("Reconciler", errors.New("boom"), "sweep failed for %s", "orders")

	output := buf.String()
	assert.Contains(t, output, "sweep failed for orders")
	assert.Contains(t, output, `error=boom`)
}

func TestForTarget_JSONAttributes(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, FormatJSON, &buf)

	ForTarget("Lifecycle", "catalog-sync", "orders-db").Error(errors.New("refused"), "Failed to start")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Failed to start", line["msg"])
	assert.Equal(t, "Lifecycle", line[KeySubsystem])
	assert.Equal(t, "catalog-sync", line[KeyConnector])
	assert.Equal(t, "orders-db", line[KeyTarget])
	assert.Equal(t, "refused", line[KeyError])
}

func TestUninitialized_KeepsErrorAndAttributes(t *testing.T) {
	prev := defaultLogger.Swap(nil)
	var buf bytes.Buffer
	fallbackOutput = &buf
	t.Cleanup(func() {
		defaultLogger.Store(prev)
		fallbackOutput = os.Stderr
	})

	ForTarget("Lifecycle", "catalog-sync", "orders-db").Error(errors.New("refused"), "Failed to start")
	Info("Lifecycle", "not written before init")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, `msg="Failed to start"`)
	assert.Contains(t, output, "logging_uninitialized=true")
	assert.Contains(t, output, "connector=catalog-sync")
	assert.Contains(t, output, "target=orders-db")
	assert.Contains(t, output, "error=refused")
}

func TestLoggerWith_DoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	Init(LevelDebug, FormatText, &buf)

	parent := For("Router")
	child := parent.With(slog.String("event", "e-1"))

	parent.Info("parent line")
	child.Info("child line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "event=e-1")
	assert.Contains(t, lines[1], "event=e-1")
}

func TestControllerRuntimeLoggerInitialization(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	logger := ctrl.Log
	if logger.GetSink() == nil {
		t.Error("Expected controller-runtime logger sink to be initialized")
	}

	logger.Info("test message from controller-runtime logger", "key", "value")
}
