package worker

import (
	"fmt"
	"sort"
	"sync"

	"targetsync/internal/catalog"
)

// Built is the result of constructing a target's worker and connector.
type Built struct {
	Kind                string
	MergedConfiguration map[string]any
	Connector           ResourceConnector
	Worker              Worker

	// Events is non-nil exactly when SupportsEvents is true.
	Events         EventProcessor
	SupportsEvents bool
}

// Option configures a Factory.
type Option func(*Factory)

// WithKind registers kind for the given target element type.
func WithKind(elementType string, kind Kind) Option {
	return func(f *Factory) {
		f.kinds[elementType] = kind
	}
}

// WithDefaultKind sets the kind used for element types with no registration.
func WithDefaultKind(kind Kind) Option {
	return func(f *Factory) {
		k := kind
		f.defaultKind = &k
	}
}

// Factory builds workers and resource connectors for catalog targets.
type Factory struct {
	// connectorConfig is a private snapshot and is never mutated.
	connectorConfig map[string]any

	mu          sync.RWMutex
	kinds       map[string]Kind
	defaultKind *Kind
}

// NewFactory creates a factory over a snapshot of the connector-wide
// configuration. Later changes to connectorConfig are not observed.
func NewFactory(connectorConfig map[string]any, opts ...Option) *Factory {
	f := &Factory{
		connectorConfig: catalog.CopyMap(connectorConfig),
		kinds:           make(map[string]Kind),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Register adds or replaces the kind for an element type.
func (f *Factory) Register(elementType string, kind Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds[elementType] = kind
}

// Kinds returns the registered element types, sorted.
func (f *Factory) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.kinds))
	for t := range f.kinds {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ConnectorConfiguration returns a copy of the connector-wide configuration.
func (f *Factory) ConnectorConfiguration() map[string]any {
	return catalog.CopyMap(f.connectorConfig)
}

// MergeConfiguration overlays the target's configuration properties on the
// connector-wide configuration. Target values win. Returns nil when neither
// side contributes any key.
func (f *Factory) MergeConfiguration(desc catalog.TargetDescriptor) map[string]any {
	merged := catalog.CopyMap(f.connectorConfig)
	if merged == nil {
		merged = make(map[string]any, len(desc.ConfigurationProperties))
	}
	for k, v := range catalog.CopyMap(desc.ConfigurationProperties) {
		merged[k] = v
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func (f *Factory) kindFor(elementType string) (Kind, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if k, ok := f.kinds[elementType]; ok {
		return k, nil
	}
	if f.defaultKind != nil {
		return *f.defaultKind, nil
	}
	return Kind{}, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, elementType)
}

// NewConnector builds the resource connector for desc.
func (f *Factory) NewConnector(desc catalog.TargetDescriptor, merged map[string]any) (conn ResourceConnector, err error) {
	kind, err := f.kindFor(desc.TargetElementType)
	if err != nil {
		return nil, err
	}
	if kind.NewConnector == nil {
		return NopConnector{}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			conn, err = nil, fmt.Errorf("kind %s connector: %w", kind.Name, catalog.PanicError(r))
		}
	}()
	conn, err = kind.NewConnector(desc, merged)
	if err != nil {
		return nil, fmt.Errorf("kind %s connector: %w", kind.Name, err)
	}
	if conn == nil {
		return NopConnector{}, nil
	}
	return conn, nil
}

// BuildWorker builds the worker for desc around conn.
func (f *Factory) BuildWorker(desc catalog.TargetDescriptor, merged map[string]any, conn ResourceConnector) (w Worker, err error) {
	kind, err := f.kindFor(desc.TargetElementType)
	if err != nil {
		return nil, err
	}
	if kind.NewWorker == nil {
		return nil, fmt.Errorf("kind %s has no worker constructor", kind.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("kind %s worker: %w", kind.Name, catalog.PanicError(r))
		}
	}()
	w, err = kind.NewWorker(desc, merged, conn)
	if err != nil {
		return nil, fmt.Errorf("kind %s worker: %w", kind.Name, err)
	}
	if w == nil {
		return nil, fmt.Errorf("kind %s returned a nil worker", kind.Name)
	}
	return w, nil
}

// Build merges configuration and constructs both halves for desc. The event
// capability is decided here, once, and never re-inspected.
func (f *Factory) Build(desc catalog.TargetDescriptor) (*Built, error) {
	kind, err := f.kindFor(desc.TargetElementType)
	if err != nil {
		return nil, err
	}

	merged := f.MergeConfiguration(desc)

	conn, err := f.NewConnector(desc, merged)
	if err != nil {
		return nil, err
	}
	w, err := f.BuildWorker(desc, merged, conn)
	if err != nil {
		return nil, err
	}

	b := &Built{
		Kind:                kind.Name,
		MergedConfiguration: merged,
		Connector:           conn,
		Worker:              w,
	}
	if ep, ok := w.(EventProcessor); ok {
		b.Events = ep
		b.SupportsEvents = true
	}
	return b, nil
}
