// Package reconciler keeps the target registry in step with the catalog.
//
// # Overview
//
// The Engine performs pull-based reconciliation sweeps. A sweep pages through
// the TargetSource, compares each descriptor against the registry by
// relationship id and version stamp, and applies the difference:
//
//   - Created: an id not in the registry is built, started and stored
//   - Updated: an id whose version stamp changed is rebuilt; the old
//     connector is stopped before the new one starts
//   - Removed: an id held before the sweep but not seen by a complete sweep
//     is stopped and dropped from the registry
//
// Each change is announced on the listener bus after the registry write.
//
// # Failure isolation
//
// A failure to build, start or stop one target never aborts the sweep. It is
// logged once, with the connector and target names, and counted in
// Result.Failed. A target whose build failed stays absent (or keeps its old
// record) and is retried by the next sweep. A target whose start failed is
// kept in the registry and can be retried with RetryFailed.
//
// A TargetSource error aborts the sweep. Changes applied from earlier pages
// stand; no removals are performed since the listing is incomplete.
//
// # Refresh gate
//
// The RefreshGate is raised for the whole of a sweep. The event router
// consults it and drops events that arrive mid-sweep, so a unit of work is
// not handled both by the sweep and by an event.
//
// Example usage:
//
//	engine, err := reconciler.NewEngine(reconciler.Config{
//	    ConnectorName: "catalog-sync",
//	    Source:        source,
//	    Factory:       factory,
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := engine.Reconcile(ctx)
package reconciler
