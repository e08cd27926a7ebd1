// Package listeners dispatches registry change notifications to interested
// parties in registration order.
package listeners

import (
	"context"
	"fmt"
	"sync"

	"targetsync/internal/catalog"
	"targetsync/internal/registry"
	"targetsync/pkg/logging"
)

const subsystem = "Listeners"

// Listener observes registry changes made by the reconciler.
type Listener interface {
	OnCreated(ctx context.Context, rec *registry.RequestedTarget) error
	OnUpdated(ctx context.Context, old, updated *registry.RequestedTarget) error
	OnRemoved(ctx context.Context, rec *registry.RequestedTarget) error
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Created func(ctx context.Context, rec *registry.RequestedTarget) error
	Updated func(ctx context.Context, old, updated *registry.RequestedTarget) error
	Removed func(ctx context.Context, rec *registry.RequestedTarget) error
}

func (l ListenerFuncs) OnCreated(ctx context.Context, rec *registry.RequestedTarget) error {
	if l.Created == nil {
		return nil
	}
	return l.Created(ctx, rec)
}

func (l ListenerFuncs) OnUpdated(ctx context.Context, old, updated *registry.RequestedTarget) error {
	if l.Updated == nil {
		return nil
	}
	return l.Updated(ctx, old, updated)
}

func (l ListenerFuncs) OnRemoved(ctx context.Context, rec *registry.RequestedTarget) error {
	if l.Removed == nil {
		return nil
	}
	return l.Removed(ctx, rec)
}

type entry struct {
	name     string
	listener Listener
}

// Bus is an ordered set of named listeners. Notifications run synchronously
// on the caller's goroutine; one listener failing never stops the rest.
type Bus struct {
	connector string

	mu      sync.RWMutex
	entries []entry
}

// NewBus creates a bus. connector names the owning connector in log lines.
func NewBus(connector string) *Bus {
	return &Bus{connector: connector}
}

// Register appends a listener. Registering an existing name replaces the
// listener in place, keeping its position.
func (b *Bus) Register(name string, l Listener) error {
	if l == nil {
		return fmt.Errorf("cannot register nil listener")
	}
	if name == "" {
		return fmt.Errorf("listener has empty name")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		if b.entries[i].name == name {
			b.entries[i].listener = l
			return nil
		}
	}
	b.entries = append(b.entries, entry{name: name, listener: l})
	return nil
}

// Unregister removes the named listener and reports whether it existed.
func (b *Bus) Unregister(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.entries {
		if b.entries[i].name == name {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Bus) snapshot() []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]entry(nil), b.entries...)
}

// NotifyCreated calls OnCreated on every listener. It returns the number of
// listeners that failed.
func (b *Bus) NotifyCreated(ctx context.Context, rec *registry.RequestedTarget) int {
	return b.dispatch(rec, "created", func(l Listener) error {
		return l.OnCreated(ctx, rec)
	})
}

// NotifyUpdated calls OnUpdated on every listener.
func (b *Bus) NotifyUpdated(ctx context.Context, old, updated *registry.RequestedTarget) int {
	return b.dispatch(updated, "updated", func(l Listener) error {
		return l.OnUpdated(ctx, old, updated)
	})
}

// NotifyRemoved calls OnRemoved on every listener.
func (b *Bus) NotifyRemoved(ctx context.Context, rec *registry.RequestedTarget) int {
	return b.dispatch(rec, "removed", func(l Listener) error {
		return l.OnRemoved(ctx, rec)
	})
}

func (b *Bus) dispatch(rec *registry.RequestedTarget, change string, call func(Listener) error) int {
	failed := 0
	for _, e := range b.snapshot() {
		if err := safeCall(e.listener, call); err != nil {
			failed++
			logging.ForTarget(subsystem, b.connector, rec.Name()).Error(
				catalog.NewTargetError(catalog.OpNotify, rec.RelationshipID, err),
				"Listener %s failed on %s notification", e.name, change)
		}
	}
	return failed
}

func safeCall(l Listener, call func(Listener) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = catalog.PanicError(r)
		}
	}()
	return call(l)
}
