// Package events delivers asynchronous change events from the metadata store
// to the workers of started catalog targets.
//
// The Router is the push half of synchronization. It never creates, replaces
// or removes registry records; that is the reconciler's job. It only reads a
// snapshot of the registry and hands each event to every event-capable,
// started worker.
//
// While a reconciliation sweep is running the refresh gate is raised and the
// Router drops incoming events. The sweep already reads the authoritative
// state, so processing the event concurrently would handle the same unit of
// work twice.
//
// Events naming an element that no worker knows are forwarded anyway; workers
// ignore what is not theirs and nothing else acts on it.
//
// Usage:
//
//	router := events.NewRouter("catalog-sync", reg, engine.Gate(), metrics)
//	if err := router.Start(ctx, eventCh); err != nil {
//	    return err
//	}
//	defer router.Stop()
package events
