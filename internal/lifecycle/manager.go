// Package lifecycle starts and stops the resource connectors of catalog
// targets, isolating each target's failures from the caller.
//
// The manager never logs. It returns *catalog.TargetError values and leaves
// reporting to the reconciler so that every failure is logged exactly once.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"targetsync/internal/catalog"
	"targetsync/internal/registry"
)

// DefaultStopTimeout bounds how long Stop waits for a resource connector.
const DefaultStopTimeout = 10 * time.Second

// LateStopFunc is invoked when a stop that already timed out finally returns.
type LateStopFunc func(rec *registry.RequestedTarget, err error)

// Option configures a Manager.
type Option func(*Manager)

// WithStopTimeout overrides DefaultStopTimeout. Non-positive values are ignored.
func WithStopTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.stopTimeout = d
		}
	}
}

// WithLateStopHandler sets the callback for stops that outlive the timeout.
func WithLateStopHandler(fn LateStopFunc) Option {
	return func(m *Manager) {
		m.onLateStop = fn
	}
}

// Manager drives ResourceConnector.Start and ResourceConnector.Stop.
type Manager struct {
	stopTimeout time.Duration
	onLateStop  LateStopFunc
}

// NewManager creates a lifecycle manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{stopTimeout: DefaultStopTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StopTimeout returns the configured stop bound.
func (m *Manager) StopTimeout() time.Duration {
	return m.stopTimeout
}

// Start invokes the connector start hook and marks rec started on success.
// Starting an already started record is a no-op.
func (m *Manager) Start(ctx context.Context, rec *registry.RequestedTarget) (err error) {
	if rec.Started() {
		return nil
	}
	if rec.Connector == nil {
		rec.SetStarted(true)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = catalog.NewTargetError(catalog.OpStart, rec.RelationshipID, catalog.PanicError(r))
		}
	}()

	if err := rec.Connector.Start(ctx); err != nil {
		return catalog.NewTargetError(catalog.OpStart, rec.RelationshipID, err)
	}
	rec.SetStarted(true)
	return nil
}

// Stop invokes the connector stop hook, waiting at most the stop timeout.
// The hook runs even when the start hook failed, so that a connector which
// acquired resources before failing still releases them. The record is marked
// not started regardless of the outcome.
func (m *Manager) Stop(ctx context.Context, rec *registry.RequestedTarget) error {
	defer rec.SetStarted(false)

	if rec.Connector == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, m.stopTimeout)
	done := make(chan error, 1)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				done <- catalog.PanicError(r)
			}
		}()
		done <- rec.Connector.Stop(stopCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			return catalog.NewTargetError(catalog.OpStop, rec.RelationshipID, err)
		}
		return nil
	case <-stopCtx.Done():
		// The connector may still return a result just after the deadline.
		select {
		case err := <-done:
			if err != nil {
				return catalog.NewTargetError(catalog.OpStop, rec.RelationshipID, err)
			}
			return nil
		default:
		}
		go m.awaitLateStop(rec, done)
		return catalog.NewTargetError(catalog.OpStop, rec.RelationshipID,
			fmt.Errorf("after %s: %w", m.stopTimeout, catalog.ErrStopTimeout))
	}
}

func (m *Manager) awaitLateStop(rec *registry.RequestedTarget, done <-chan error) {
	err := <-done
	if m.onLateStop != nil {
		m.onLateStop(rec, err)
	}
}
