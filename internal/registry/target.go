package registry

import (
	"sync/atomic"
	"time"

	"targetsync/internal/catalog"
	"targetsync/internal/worker"
)

// RequestedTarget is the runtime record for one catalog target. The registry
// holding it is the sole owner of its Connector and Worker.
type RequestedTarget struct {
	catalog.TargetDescriptor

	Kind                              string
	MergedConfiguration               map[string]any
	EffectivePermittedSynchronization catalog.PermittedSynchronization

	Connector worker.ResourceConnector
	Worker    worker.Worker

	// Events and SupportsEvents are fixed at construction.
	Events         worker.EventProcessor
	SupportsEvents bool

	CreatedAt time.Time
	UpdatedAt time.Time

	started atomic.Bool
}

// NewRequestedTarget assembles a record from a descriptor and the factory
// output. inherited is the owning connector's permitted synchronization.
func NewRequestedTarget(desc catalog.TargetDescriptor, built *worker.Built, inherited catalog.PermittedSynchronization) *RequestedTarget {
	now := time.Now()
	return &RequestedTarget{
		TargetDescriptor:                  desc.Clone(),
		Kind:                              built.Kind,
		MergedConfiguration:               built.MergedConfiguration,
		EffectivePermittedSynchronization: desc.PermittedSynchronization.Resolve(inherited),
		Connector:                         built.Connector,
		Worker:                            built.Worker,
		Events:                            built.Events,
		SupportsEvents:                    built.SupportsEvents,
		CreatedAt:                         now,
		UpdatedAt:                         now,
	}
}

// Started reports whether the resource connector start hook succeeded.
func (r *RequestedTarget) Started() bool {
	return r.started.Load()
}

// SetStarted records the outcome of a start or stop.
func (r *RequestedTarget) SetStarted(v bool) {
	r.started.Store(v)
}
