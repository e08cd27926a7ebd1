package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"targetsync/internal/config"
	"targetsync/internal/connector"
	"targetsync/internal/events"
	"targetsync/internal/listeners"
	"targetsync/internal/processors"
	"targetsync/internal/reconciler"
	"targetsync/internal/registry"
	"targetsync/internal/sources"
	"targetsync/internal/telemetry"
	"targetsync/internal/worker"
	"targetsync/pkg/logging"
)

// AuditListenerName is the name under which the change audit listener is
// registered on the listener bus.
const AuditListenerName = "audit"

// Services holds the wired components of one connector.
//
// They are built leaves first: source, metrics, worker factory, engine,
// router and finally the connector that orchestrates them.
type Services struct {
	Settings config.Config

	Sources   *sources.Set
	Metrics   *telemetry.Metrics
	Factory   *worker.Factory
	Engine    *reconciler.Engine
	Router    *events.Router
	Connector *connector.Connector
}

// InitializeServices opens the configured target source and wires the
// reconciliation engine, event router and connector around it.
func InitializeServices(cfg *Config) (*Services, error) {
	if cfg.Settings == nil {
		return nil, errors.New("configuration not loaded")
	}
	settings := *cfg.Settings
	name := settings.Connector.Name

	set, err := sources.Open(settings.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s target source: %w", settings.Source.Type, err)
	}

	factory, err := NewFactory(settings)
	if err != nil {
		_ = set.Close()
		return nil, err
	}

	metrics := telemetry.NewMetrics(name)
	bus := listeners.NewBus(name)
	if err := bus.Register(AuditListenerName, auditListener(name)); err != nil {
		_ = set.Close()
		return nil, err
	}

	engine, err := reconciler.NewEngine(reconciler.Config{
		ConnectorName:            name,
		PermittedSynchronization: settings.Connector.PermittedSynchronization,
		PageSize:                 settings.Connector.PageSize,
		StopTimeout:              settings.Connector.StopTimeoutDuration(),
		Source:                   set.Targets,
		Factory:                  factory,
		Registry:                 registry.New(),
		Listeners:                bus,
		Metrics:                  metrics,
	})
	if err != nil {
		_ = set.Close()
		return nil, fmt.Errorf("failed to create reconciler: %w", err)
	}

	router := events.NewRouter(name, engine.Registry(), engine.Gate(), metrics)

	conn := connector.New(connector.Config{
		Name:                     name,
		PermittedSynchronization: settings.Connector.PermittedSynchronization,
		ListenForEvents:          settings.Connector.ListenForEvents,
		RetryFailedConnectors:    settings.Connector.RetryFailedConnectors,
	}, engine, router, set.Events)

	logging.Info("Bootstrap", "Connector %s wired to %s source (worker kinds: %v)",
		name, settings.Source.Type, factory.Kinds())

	return &Services{
		Settings:  settings,
		Sources:   set,
		Metrics:   metrics,
		Factory:   factory,
		Engine:    engine,
		Router:    router,
		Connector: conn,
	}, nil
}

// NewFactory registers the worker kinds named in the workers section of the
// configuration.
func NewFactory(settings config.Config) (*worker.Factory, error) {
	available := map[string]worker.Kind{
		processors.LogKindName:      processors.LogKind(settings.Connector.Name),
		processors.SnapshotKindName: processors.SnapshotKind(settings.Workers.SnapshotDir),
	}
	lookup := func(name string) (worker.Kind, error) {
		kind, ok := available[name]
		if !ok {
			names := make([]string, 0, len(available))
			for n := range available {
				names = append(names, n)
			}
			sort.Strings(names)
			return worker.Kind{}, fmt.Errorf("unknown worker kind %q (available: %v)", name, names)
		}
		return kind, nil
	}

	var opts []worker.Option
	if settings.Workers.DefaultKind != "" {
		kind, err := lookup(settings.Workers.DefaultKind)
		if err != nil {
			return nil, fmt.Errorf("workers.defaultKind: %w", err)
		}
		opts = append(opts, worker.WithDefaultKind(kind))
	}
	for elementType, kindName := range settings.Workers.ElementTypes {
		kind, err := lookup(kindName)
		if err != nil {
			return nil, fmt.Errorf("workers.elementTypes[%s]: %w", elementType, err)
		}
		opts = append(opts, worker.WithKind(elementType, kind))
	}

	return worker.NewFactory(settings.Connector.Configuration, opts...), nil
}

// auditListener writes one line per registry change.
func auditListener(connectorName string) listeners.Listener {
	log := func(rec *registry.RequestedTarget) *logging.Logger {
		return logging.ForTarget("Audit", connectorName, rec.Name())
	}
	return listeners.ListenerFuncs{
		Created: func(_ context.Context, rec *registry.RequestedTarget) error {
			log(rec).Info("Target %s added (kind %s, version %s)", rec.RelationshipID, rec.Kind, rec.VersionStamp)
			return nil
		},
		Updated: func(_ context.Context, old, updated *registry.RequestedTarget) error {
			log(updated).Info("Target %s updated (version %s -> %s)", updated.RelationshipID, old.VersionStamp, updated.VersionStamp)
			return nil
		},
		Removed: func(_ context.Context, rec *registry.RequestedTarget) error {
			log(rec).Info("Target %s removed", rec.RelationshipID)
			return nil
		},
	}
}

// Close releases the target source.
func (s *Services) Close() error {
	return s.Sources.Close()
}
