package processors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"targetsync/internal/catalog"
	"targetsync/internal/worker"
)

// SnapshotKindName is the registered name of the snapshot worker kind.
const SnapshotKindName = "snapshot"

// DefaultFileNameTemplate names snapshot files after the relationship id.
const DefaultFileNameTemplate = `{{ .RelationshipID | lower }}.yaml`

// Configuration keys read from the merged target configuration.
const (
	ConfigSnapshotDir      = "snapshotDir"
	ConfigFileNameTemplate = "fileNameTemplate"
)

// SnapshotKind returns the snapshot worker kind writing under dir unless a
// target overrides it with the snapshotDir configuration key.
func SnapshotKind(dir string) worker.Kind {
	return worker.Kind{
		Name: SnapshotKindName,
		NewConnector: func(_ catalog.TargetDescriptor, merged map[string]any) (worker.ResourceConnector, error) {
			return &DirConnector{Dir: stringSetting(merged, ConfigSnapshotDir, dir)}, nil
		},
		NewWorker: func(desc catalog.TargetDescriptor, merged map[string]any, conn worker.ResourceConnector) (worker.Worker, error) {
			dc, ok := conn.(*DirConnector)
			if !ok {
				return nil, fmt.Errorf("snapshot worker requires a directory connector, got %T", conn)
			}

			tmpl, err := template.New("fileName").
				Funcs(sprig.TxtFuncMap()).
				Option("missingkey=error").
				Parse(stringSetting(merged, ConfigFileNameTemplate, DefaultFileNameTemplate))
			if err != nil {
				return nil, fmt.Errorf("parse file name template: %w", err)
			}

			name, err := renderFileName(tmpl, desc)
			if err != nil {
				return nil, err
			}

			return &SnapshotWorker{
				desc:   desc,
				merged: merged,
				path:   filepath.Join(dc.Dir, name),
			}, nil
		},
	}
}

func stringSetting(merged map[string]any, key, fallback string) string {
	if v, ok := merged[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func renderFileName(tmpl *template.Template, desc catalog.TargetDescriptor) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, desc); err != nil {
		return "", fmt.Errorf("render file name: %w", err)
	}
	name := strings.TrimSpace(buf.String())
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid snapshot file name %q", name)
	}
	return name, nil
}

// DirConnector owns the snapshot directory.
type DirConnector struct {
	Dir string
}

func (c *DirConnector) Start(context.Context) error {
	if c.Dir == "" {
		return fmt.Errorf("snapshot directory not configured")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	return nil
}

func (c *DirConnector) Stop(context.Context) error {
	return nil
}

// Snapshot is the document written for each target.
type Snapshot struct {
	Target        catalog.TargetDescriptor `yaml:"target"`
	Configuration map[string]any           `yaml:"configuration,omitempty"`
	RefreshedAt   time.Time                `yaml:"refreshedAt"`
}

// SnapshotWorker writes its target to a YAML file.
type SnapshotWorker struct {
	desc   catalog.TargetDescriptor
	merged map[string]any
	path   string

	mu sync.Mutex
}

// Path returns the snapshot file path.
func (w *SnapshotWorker) Path() string { return w.path }

// JournalPath returns the event journal path.
func (w *SnapshotWorker) JournalPath() string {
	return strings.TrimSuffix(w.path, filepath.Ext(w.path)) + ".events.yaml"
}

func (w *SnapshotWorker) Refresh(context.Context) error {
	data, err := yaml.Marshal(Snapshot{
		Target:        w.desc,
		Configuration: w.merged,
		RefreshedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (w *SnapshotWorker) ProcessEvent(_ context.Context, ev catalog.Event) error {
	if !concerns(w.desc, ev) {
		return nil
	}

	data, err := yaml.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.JournalPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open event journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append([]byte("---\n"), data...)); err != nil {
		return fmt.Errorf("append event journal: %w", err)
	}
	return nil
}
