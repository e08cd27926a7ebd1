package events

import (
	"context"
	"log/slog"
	"sync"

	"targetsync/internal/catalog"
	"targetsync/internal/registry"
	"targetsync/internal/telemetry"
	"targetsync/pkg/logging"
)

const subsystem = "EventRouter"

// Gate reports whether a reconciliation sweep is in progress.
type Gate interface {
	Active() bool
}

// RouteResult summarizes the delivery of one event.
type RouteResult struct {
	Forwarded int
	Failed    int
	Dropped   bool
}

// Router forwards change events to event-capable workers.
type Router struct {
	connector string
	registry  *registry.Registry
	gate      Gate
	metrics   *telemetry.Metrics

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	running    bool
}

// NewRouter creates a router over reg. metrics may be nil.
func NewRouter(connector string, reg *registry.Registry, gate Gate, metrics *telemetry.Metrics) *Router {
	return &Router{
		connector: connector,
		registry:  reg,
		gate:      gate,
		metrics:   metrics,
	}
}

// Route delivers ev to every started, event-capable target whose effective
// permitted synchronization allows events. Failures of one worker do not
// affect the others.
func (r *Router) Route(ctx context.Context, ev catalog.Event) RouteResult {
	log := logging.For(subsystem,
		slog.String(logging.KeyConnector, r.connector),
		slog.String("event", ev.ID),
		slog.String("kind", string(ev.Kind)),
		slog.String("element", ev.ElementID))

	if r.gate != nil && r.gate.Active() {
		log.Info("Dropping event received during reconciliation sweep")
		r.metrics.Event(telemetry.OutcomeDropped, 1)
		return RouteResult{Dropped: true}
	}

	var res RouteResult
	for _, rec := range r.registry.Values() {
		if !rec.SupportsEvents || !rec.Started() {
			continue
		}
		if !rec.EffectivePermittedSynchronization.AllowsEvents() {
			continue
		}
		if err := deliver(ctx, rec, ev); err != nil {
			res.Failed++
			log.With(slog.String(logging.KeyTarget, rec.Name())).Error(err, "Worker failed to process event")
			continue
		}
		res.Forwarded++
	}

	if res.Forwarded == 0 && res.Failed == 0 {
		log.Debug("No worker accepted event")
	}
	r.metrics.Event(telemetry.OutcomeForwarded, res.Forwarded)
	r.metrics.Event(telemetry.OutcomeFailed, res.Failed)
	return res
}

func deliver(ctx context.Context, rec *registry.RequestedTarget, ev catalog.Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = catalog.NewTargetError(catalog.OpEvent, rec.RelationshipID, catalog.PanicError(p))
		}
	}()
	if err := rec.Events.ProcessEvent(ctx, ev); err != nil {
		return catalog.NewTargetError(catalog.OpEvent, rec.RelationshipID, err)
	}
	return nil
}

// Run routes events from in until ctx is cancelled or in is closed.
func (r *Router) Run(ctx context.Context, in <-chan catalog.Event) error {
	for {
		select {
		case <-ctx.Done():
			logging.Debug(subsystem, "Context cancelled, stopping")
			return nil
		case ev, ok := <-in:
			if !ok {
				logging.Warn(subsystem, "Event channel closed, stopping")
				return nil
			}
			r.Route(ctx, ev)
		}
	}
}

// Start runs the router in a background goroutine. It is idempotent.
func (r *Router) Start(ctx context.Context, in <-chan catalog.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()
		_ = r.Run(runCtx, in)
	}()

	logging.Info(subsystem, "Started event routing for %s", r.connector)
	return nil
}

// Stop cancels the background goroutine and waits for it to exit. It is
// idempotent.
func (r *Router) Stop() error {
	r.mu.Lock()
	cancel := r.cancelFunc
	r.cancelFunc = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	r.wg.Wait()

	logging.Info(subsystem, "Stopped event routing for %s", r.connector)
	return nil
}

// Running reports whether the background goroutine is active.
func (r *Router) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
