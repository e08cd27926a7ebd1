package processors

import "targetsync/internal/catalog"

// concerns reports whether ev is about the target described by desc.
func concerns(desc catalog.TargetDescriptor, ev catalog.Event) bool {
	if ev.RelationshipID != "" {
		return ev.RelationshipID == desc.RelationshipID
	}
	return ev.ElementID != "" && ev.ElementID == desc.TargetElementID
}
