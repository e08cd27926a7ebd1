// Package connector ties the reconciler, the event router and an optional
// event source together into one long-running catalog connector.
//
// A connector is driven in one of two modes. Run refreshes on a timer and on
// explicit triggers. Engage hands control to a blocking Engager and retries
// it with exponential backoff when it fails. The two modes are mutually
// exclusive on a single Connector.
//
// The event listener is registered lazily, after the first refresh, so that
// events never reach workers before the registry has been populated.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"targetsync/internal/catalog"
	"targetsync/internal/events"
	"targetsync/internal/reconciler"
	"targetsync/pkg/logging"
)

const subsystem = "Connector"

const (
	DefaultEventBuffer        = 64
	DefaultEngageInitialDelay = time.Second
	DefaultEngageMaxDelay     = time.Minute
)

const (
	modeIdle int32 = iota
	modeRun
	modeEngage
)

// Config controls the top-level orchestration.
type Config struct {
	Name string

	// PermittedSynchronization is the connector-wide value. Event listening
	// is only enabled when it allows events.
	PermittedSynchronization catalog.PermittedSynchronization

	ListenForEvents       bool
	RetryFailedConnectors bool

	EventBuffer        int
	EngageInitialDelay time.Duration
	EngageMaxDelay     time.Duration
}

// Engager is a blocking unit of work run by Engage. It returns nil when the
// engagement completed and an error when it should be retried.
type Engager interface {
	Engage(ctx context.Context, c *Connector) error
}

// EngagerFunc adapts a function to Engager.
type EngagerFunc func(ctx context.Context, c *Connector) error

func (f EngagerFunc) Engage(ctx context.Context, c *Connector) error {
	return f(ctx, c)
}

// Connector is the top-level orchestration of one catalog connector.
type Connector struct {
	cfg         Config
	engine      *reconciler.Engine
	router      *events.Router
	eventSource catalog.EventSource

	events chan catalog.Event

	// lifeCtx outlives individual refreshes; the event source and router run
	// under it until Disconnect.
	lifeCtx    context.Context
	lifeCancel context.CancelFunc

	regMu      sync.Mutex
	registered bool

	mode    atomic.Int32
	trigger chan struct{}
}

// New creates a connector. eventSource may be nil.
func New(cfg Config, engine *reconciler.Engine, router *events.Router, eventSource catalog.EventSource) *Connector {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	if cfg.EngageInitialDelay <= 0 {
		cfg.EngageInitialDelay = DefaultEngageInitialDelay
	}
	if cfg.EngageMaxDelay <= 0 {
		cfg.EngageMaxDelay = DefaultEngageMaxDelay
	}

	lifeCtx, lifeCancel := context.WithCancel(context.Background())
	return &Connector{
		cfg:         cfg,
		engine:      engine,
		router:      router,
		eventSource: eventSource,
		events:      make(chan catalog.Event, cfg.EventBuffer),
		lifeCtx:     lifeCtx,
		lifeCancel:  lifeCancel,
		trigger:     make(chan struct{}, 1),
	}
}

// Name returns the connector name.
func (c *Connector) Name() string { return c.cfg.Name }

// Engine returns the reconciliation engine.
func (c *Connector) Engine() *reconciler.Engine { return c.engine }

func (c *Connector) log() *logging.Logger {
	return logging.For(subsystem, slog.String(logging.KeyConnector, c.cfg.Name))
}

// Refresh runs one reconciliation sweep, refreshes the started workers,
// optionally retries failed starts, and registers the event listener if it
// is not registered yet. A source error ends the refresh early and is
// returned after being logged.
//
// Refresh is safe to call while Run is looping. Overlapping callers share a
// single sweep.
func (c *Connector) Refresh(ctx context.Context) (reconciler.Result, error) {
	res, err := c.engine.Trigger(ctx)
	if err != nil {
		c.log().Error(err, "Reconciliation sweep failed")
		return res, err
	}

	c.engine.RefreshTargets(ctx)

	if c.cfg.RetryFailedConnectors {
		c.engine.RetryFailed(ctx)
	}

	c.ensureEventListener()
	return res, nil
}

func (c *Connector) wantsEvents() bool {
	return c.cfg.ListenForEvents &&
		c.cfg.PermittedSynchronization.AllowsEvents() &&
		c.eventSource != nil
}

// ensureEventListener registers the event source and starts routing exactly
// once. A failed attempt is retried on the next refresh.
func (c *Connector) ensureEventListener() {
	if !c.wantsEvents() {
		return
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.registered || c.lifeCtx.Err() != nil {
		return
	}

	if err := c.eventSource.Start(c.lifeCtx, c.events); err != nil {
		c.log().Error(err, "Failed to register event listener %s; will retry on next refresh", c.eventSource.Name())
		return
	}
	if err := c.router.Start(c.lifeCtx, c.events); err != nil {
		_ = c.eventSource.Stop()
		c.log().Error(err, "Failed to start event routing; will retry on next refresh")
		return
	}

	c.registered = true
	c.log().Info("Registered event listener %s", c.eventSource.Name())
}

// ListenerRegistered reports whether the event listener is registered.
func (c *Connector) ListenerRegistered() bool {
	c.regMu.Lock()
	defer c.regMu.Unlock()
	return c.registered
}

func (c *Connector) enter(mode int32) error {
	if c.mode.CompareAndSwap(modeIdle, mode) {
		return nil
	}
	return fmt.Errorf("connector %s: %w", c.cfg.Name, catalog.ErrModeConflict)
}

func (c *Connector) leave() {
	c.mode.Store(modeIdle)
}

// Trigger requests a refresh from a running Run loop. It never blocks;
// requests made while one is pending are coalesced. It reports whether the
// request was queued.
func (c *Connector) Trigger() bool {
	select {
	case c.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run refreshes once immediately and then on every tick of interval and on
// every Trigger, until ctx is cancelled. An interval of zero disables the
// timer: after the initial refresh, which populates the registry and
// registers the event listener, only triggers cause refreshes.
func (c *Connector) Run(ctx context.Context, interval time.Duration) error {
	if err := c.enter(modeRun); err != nil {
		return err
	}
	defer c.leave()

	c.log().Info("Starting connector (refresh interval %s)", interval)
	_, _ = c.Refresh(ctx)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.log().Info("Connector run loop stopped")
			return nil
		case <-tick:
			_, _ = c.Refresh(ctx)
		case <-c.trigger:
			_, _ = c.Refresh(ctx)
		}
	}
}

// Engage refreshes once and then runs engager until it returns nil or ctx is
// cancelled. Failed engagements are retried after an exponential backoff.
func (c *Connector) Engage(ctx context.Context, engager Engager) error {
	if err := c.enter(modeEngage); err != nil {
		return err
	}
	defer c.leave()

	_, _ = c.Refresh(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.EngageInitialDelay
	b.MaxInterval = c.cfg.EngageMaxDelay
	b.Reset()

	for attempt := 1; ; attempt++ {
		err := c.safeEngage(ctx, engager)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			c.log().Info("Engagement completed after %d attempt(s)", attempt)
			return nil
		}

		delay := b.NextBackOff()
		c.log().Warn("Engagement attempt %d failed, retrying in %s: %v", attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (c *Connector) safeEngage(ctx context.Context, engager Engager) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catalog.PanicError(r)
		}
	}()
	return engager.Engage(ctx, c)
}

// Disconnect stops the event listener and routing, then stops every target.
// The connector cannot register an event listener afterwards.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.regMu.Lock()
	registered := c.registered
	c.registered = false
	c.lifeCancel()
	c.regMu.Unlock()

	var stopErr error
	if registered {
		if err := c.eventSource.Stop(); err != nil {
			stopErr = fmt.Errorf("stop event source %s: %w", c.eventSource.Name(), err)
			c.log().Error(err, "Failed to stop event listener")
		}
	}
	if c.router != nil {
		_ = c.router.Stop()
	}

	c.engine.DisconnectAll(ctx)
	return stopErr
}
