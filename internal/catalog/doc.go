// Package catalog defines the shared vocabulary of targetsync: the catalog
// target descriptors fetched from a metadata store, the change events that
// store emits, and the interfaces through which both are obtained.
//
// A TargetDescriptor is the declared intent for one catalog target. The
// reconciler compares descriptors by RelationshipID and VersionStamp only;
// the version stamp is opaque and never parsed.
//
// Concrete implementations of TargetSource and EventSource live under
// internal/sources. Tests use in-memory fakes.
//
// Per-target failures are reported as *TargetError values so callers can use
// errors.As to recover the operation and target involved:
//
//	var te *catalog.TargetError
//	if errors.As(err, &te) {
//	    fmt.Println(te.Op, te.RelationshipID)
//	}
package catalog
