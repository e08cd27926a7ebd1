package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"targetsync/internal/catalog"
	"targetsync/internal/lifecycle"
	"targetsync/internal/listeners"
	"targetsync/internal/registry"
	"targetsync/internal/telemetry"
	"targetsync/internal/worker"
	"targetsync/pkg/logging"
)

const subsystem = "Reconciler"

// DefaultPageSize is the number of descriptors requested per page.
const DefaultPageSize = 100

// Builder constructs the worker and resource connector for a descriptor.
// *worker.Factory satisfies it.
type Builder interface {
	Build(desc catalog.TargetDescriptor) (*worker.Built, error)
}

// Lifecycle starts and stops resource connectors.
// *lifecycle.Manager satisfies it.
type Lifecycle interface {
	Start(ctx context.Context, rec *registry.RequestedTarget) error
	Stop(ctx context.Context, rec *registry.RequestedTarget) error
}

// Config holds the engine's collaborators. Source and Factory are required;
// the rest default to fresh instances.
type Config struct {
	ConnectorName string

	// PermittedSynchronization is inherited by targets that do not set one.
	PermittedSynchronization catalog.PermittedSynchronization

	PageSize int

	// StopTimeout bounds connector stops when Lifecycle is left nil.
	StopTimeout time.Duration

	Source    catalog.TargetSource
	Factory   Builder
	Registry  *registry.Registry
	Lifecycle Lifecycle
	Listeners *listeners.Bus
	Gate      *RefreshGate
	Metrics   *telemetry.Metrics
}

// Engine reconciles the registry against a TargetSource.
type Engine struct {
	cfg Config

	// sweepMu serializes sweeps and the passes that walk started targets.
	sweepMu sync.Mutex
	trigger singleflight.Group
}

// NewEngine validates cfg and fills in defaults.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("reconciler requires a target source")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("reconciler requires a worker factory")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Registry == nil {
		cfg.Registry = registry.New()
	}
	if cfg.Listeners == nil {
		cfg.Listeners = listeners.NewBus(cfg.ConnectorName)
	}
	if cfg.Gate == nil {
		cfg.Gate = NewRefreshGate()
	}

	e := &Engine{}
	if cfg.Lifecycle == nil {
		cfg.Lifecycle = lifecycle.NewManager(
			lifecycle.WithStopTimeout(cfg.StopTimeout),
			lifecycle.WithLateStopHandler(e.logLateStop),
		)
	}
	e.cfg = cfg
	return e, nil
}

// Registry returns the registry the engine writes to.
func (e *Engine) Registry() *registry.Registry { return e.cfg.Registry }

// Gate returns the refresh gate raised during sweeps.
func (e *Engine) Gate() *RefreshGate { return e.cfg.Gate }

// Listeners returns the change listener bus.
func (e *Engine) Listeners() *listeners.Bus { return e.cfg.Listeners }

// Reconcile runs one sweep. Per-target failures are logged and counted in the
// result; only a source failure or cancellation produces an error, in which
// case no removals are performed.
func (e *Engine) Reconcile(ctx context.Context) (Result, error) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	defer e.cfg.Gate.Raise()()

	start := time.Now()
	var res Result

	previous := e.cfg.Registry.IDs()
	seen := make(map[string]struct{}, len(previous))

	finish := func(err error) (Result, error) {
		res.Duration = time.Since(start)
		e.cfg.Metrics.ObserveSweep(res.Duration, res.counts(), err)
		e.recordTargets()
		return res, err
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return finish(fmt.Errorf("sweep cancelled at offset %d: %w", offset, err))
		}

		page, err := e.cfg.Source.List(ctx, offset, e.cfg.PageSize)
		if err != nil {
			return finish(fmt.Errorf("list catalog targets at offset %d: %w", offset, err))
		}
		if len(page) == 0 {
			break
		}

		for _, desc := range page {
			if desc.RelationshipID == "" {
				res.Failed++
				e.cfg.Metrics.TargetFailure(string(catalog.OpBuild))
				logging.For(subsystem, logConnector(e.cfg.ConnectorName)).Warn(
					"Skipping catalog target %q with empty relationship id", desc.Name())
				continue
			}

			res.Processed++
			if _, dup := seen[desc.RelationshipID]; dup {
				res.Duplicates++
				e.targetLog(desc).Warn("Duplicate relationship id in listing; the later entry wins")
			}
			seen[desc.RelationshipID] = struct{}{}

			e.apply(ctx, desc, &res)
		}
		offset += len(page)
	}

	for id := range previous {
		if _, ok := seen[id]; ok {
			continue
		}
		e.remove(ctx, id, &res)
	}

	if res.Processed == 0 {
		logging.For(subsystem, logConnector(e.cfg.ConnectorName)).Info("No catalog targets processed")
	}
	if res.Changed() || res.Failed > 0 {
		logging.Info(subsystem, "Sweep for %s finished: %s", e.cfg.ConnectorName, res)
	} else {
		logging.Debug(subsystem, "Sweep for %s finished: %s", e.cfg.ConnectorName, res)
	}

	return finish(nil)
}

func (e *Engine) apply(ctx context.Context, desc catalog.TargetDescriptor, res *Result) {
	existing, ok := e.cfg.Registry.Get(desc.RelationshipID)
	switch {
	case !ok:
		e.create(ctx, desc, res)
	case existing.VersionStamp != desc.VersionStamp:
		e.update(ctx, existing, desc, res)
	default:
		res.Unchanged++
	}
}

func (e *Engine) create(ctx context.Context, desc catalog.TargetDescriptor, res *Result) {
	rec, err := e.build(desc)
	if err != nil {
		e.targetFailed(desc, res, catalog.OpBuild, err, "Failed to build worker")
		return
	}

	if err := e.cfg.Lifecycle.Start(ctx, rec); err != nil {
		e.targetFailed(desc, res, catalog.OpStart, err, "Failed to start resource connector")
	}

	e.cfg.Registry.Put(rec)
	res.Created++
	e.targetLog(desc).Debug("Created catalog target (kind %s, version %s)", rec.Kind, desc.VersionStamp)
	e.cfg.Listeners.NotifyCreated(ctx, rec)
}

func (e *Engine) update(ctx context.Context, old *registry.RequestedTarget, desc catalog.TargetDescriptor, res *Result) {
	// Build first: if this fails the old record stays and the next sweep
	// sees the same version difference and retries.
	rec, err := e.build(desc)
	if err != nil {
		e.targetFailed(desc, res, catalog.OpBuild, err, "Failed to build replacement worker")
		return
	}
	rec.CreatedAt = old.CreatedAt

	if err := e.cfg.Lifecycle.Stop(ctx, old); err != nil {
		e.targetFailed(desc, res, catalog.OpStop, err, "Failed to stop previous resource connector")
	}
	if err := e.cfg.Lifecycle.Start(ctx, rec); err != nil {
		e.targetFailed(desc, res, catalog.OpStart, err, "Failed to start resource connector")
	}

	e.cfg.Registry.Put(rec)
	res.Updated++
	e.targetLog(desc).Debug("Updated catalog target (version %s -> %s)", old.VersionStamp, desc.VersionStamp)
	e.cfg.Listeners.NotifyUpdated(ctx, old, rec)
}

func (e *Engine) remove(ctx context.Context, id string, res *Result) {
	rec, ok := e.cfg.Registry.Get(id)
	if !ok {
		return
	}

	if err := e.cfg.Lifecycle.Stop(ctx, rec); err != nil {
		e.targetFailed(rec.TargetDescriptor, res, catalog.OpStop, err, "Failed to stop resource connector of removed target")
	}

	e.cfg.Registry.Remove(id)
	res.Removed++
	e.targetLog(rec.TargetDescriptor).Debug("Removed catalog target")
	e.cfg.Listeners.NotifyRemoved(ctx, rec)
}

func (e *Engine) build(desc catalog.TargetDescriptor) (*registry.RequestedTarget, error) {
	built, err := e.cfg.Factory.Build(desc)
	if err != nil {
		return nil, catalog.NewTargetError(catalog.OpBuild, desc.RelationshipID, err)
	}
	return registry.NewRequestedTarget(desc, built, e.cfg.PermittedSynchronization), nil
}

func (e *Engine) targetFailed(desc catalog.TargetDescriptor, res *Result, op catalog.Op, err error, msg string) {
	res.Failed++
	e.cfg.Metrics.TargetFailure(string(op))
	e.targetLog(desc).Error(err, "%s", msg)
}

func (e *Engine) targetLog(desc catalog.TargetDescriptor) *logging.Logger {
	return logging.ForTarget(subsystem, e.cfg.ConnectorName, desc.Name())
}

func logConnector(name string) slog.Attr {
	return slog.String(logging.KeyConnector, name)
}

func (e *Engine) logLateStop(rec *registry.RequestedTarget, err error) {
	log := e.targetLog(rec.TargetDescriptor)
	if err != nil {
		log.Warn("Resource connector stop finished after timeout with error: %v", err)
		return
	}
	log.Debug("Resource connector stop finished after timeout")
}

func (e *Engine) recordTargets() {
	values := e.cfg.Registry.Values()
	started := 0
	for _, rec := range values {
		if rec.Started() {
			started++
		}
	}
	e.cfg.Metrics.SetTargets(len(values), started)
}

// Trigger runs a sweep, sharing the result with any concurrent callers
// instead of queueing another sweep behind the running one.
func (e *Engine) Trigger(ctx context.Context) (Result, error) {
	v, err, _ := e.trigger.Do("reconcile", func() (any, error) {
		return e.Reconcile(ctx)
	})
	res, _ := v.(Result)
	return res, err
}

// RefreshTargets calls Refresh on every started worker.
func (e *Engine) RefreshTargets(ctx context.Context) RefreshResult {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	var out RefreshResult
	for _, rec := range e.cfg.Registry.Values() {
		if !rec.Started() {
			continue
		}
		if err := refreshWorker(ctx, rec); err != nil {
			out.Failed++
			e.cfg.Metrics.TargetFailure(string(catalog.OpRefresh))
			e.targetLog(rec.TargetDescriptor).Error(err, "Worker refresh failed")
			continue
		}
		out.Refreshed++
	}
	return out
}

func refreshWorker(ctx context.Context, rec *registry.RequestedTarget) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catalog.NewTargetError(catalog.OpRefresh, rec.RelationshipID, catalog.PanicError(r))
		}
	}()
	if err := rec.Worker.Refresh(ctx); err != nil {
		return catalog.NewTargetError(catalog.OpRefresh, rec.RelationshipID, err)
	}
	return nil
}

// RetryFailed re-runs the start hook of registered targets whose resource
// connector is not started. It returns the number that started.
func (e *Engine) RetryFailed(ctx context.Context) int {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	recovered := 0
	for _, rec := range e.cfg.Registry.Values() {
		if rec.Started() {
			continue
		}
		if err := e.cfg.Lifecycle.Start(ctx, rec); err != nil {
			e.cfg.Metrics.TargetFailure(string(catalog.OpStart))
			e.targetLog(rec.TargetDescriptor).Error(err, "Retry of resource connector start failed")
			continue
		}
		recovered++
		e.targetLog(rec.TargetDescriptor).Info("Resource connector started on retry")
	}
	if recovered > 0 {
		e.recordTargets()
	}
	return recovered
}

// DisconnectAll stops every resource connector and empties the registry.
// Listeners are not notified.
func (e *Engine) DisconnectAll(ctx context.Context) {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	for _, rec := range e.cfg.Registry.Values() {
		if err := e.cfg.Lifecycle.Stop(ctx, rec); err != nil {
			e.cfg.Metrics.TargetFailure(string(catalog.OpStop))
			e.targetLog(rec.TargetDescriptor).Error(err, "Failed to stop resource connector during disconnect")
		}
		e.cfg.Registry.Remove(rec.RelationshipID)
	}
	e.recordTargets()
	logging.Info(subsystem, "Disconnected all catalog targets of %s", e.cfg.ConnectorName)
}
