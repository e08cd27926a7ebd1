// Package worker builds the per-target units of work that the reconciler
// manages.
//
// Every catalog target gets a ResourceConnector, which owns the external
// resources for the target and is started and stopped by the lifecycle
// manager, and a Worker, which holds the business logic. A Worker that also
// implements EventProcessor receives change events from the event router.
//
// Worker kinds are registered on a Factory per target element type:
//
//	f := worker.NewFactory(connectorConfig, worker.WithDefaultKind(processors.LogKind()))
//	f.Register("table", processors.SnapshotKind(dir))
//
// Construction is pure: kind constructors must not perform network I/O.
// Anything that talks to the outside world belongs in ResourceConnector.Start.
package worker
