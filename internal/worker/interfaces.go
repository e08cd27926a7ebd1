package worker

import (
	"context"

	"targetsync/internal/catalog"
)

// ResourceConnector owns the external resources of one catalog target.
// Start may be called again after it returned an error. Stop is called once,
// when the target is removed, replaced or disconnected, whether or not Start
// succeeded, and must release whatever a failed Start left behind.
type ResourceConnector interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Worker carries the business logic for one catalog target.
type Worker interface {
	// Refresh is invoked after every reconciliation sweep for started targets.
	Refresh(ctx context.Context) error
}

// EventProcessor is implemented by workers that react to change events.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, ev catalog.Event) error
}

// ConnectorFunc builds the resource connector for a target.
type ConnectorFunc func(desc catalog.TargetDescriptor, merged map[string]any) (ResourceConnector, error)

// WorkerFunc builds the worker for a target around its resource connector.
type WorkerFunc func(desc catalog.TargetDescriptor, merged map[string]any, conn ResourceConnector) (Worker, error)

// Kind is a named pair of constructors registered for a target element type.
type Kind struct {
	Name         string
	NewConnector ConnectorFunc
	NewWorker    WorkerFunc
}

// NopConnector is a ResourceConnector with nothing to manage.
type NopConnector struct{}

func (NopConnector) Start(context.Context) error { return nil }
func (NopConnector) Stop(context.Context) error  { return nil }
