package kube

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	"targetsync/internal/catalog"
)

const (
	// TargetLabel marks a ConfigMap as a catalog target.
	TargetLabel = "targetsync.io/catalog-target"

	// DefaultLabelSelector selects every ConfigMap carrying TargetLabel=true.
	DefaultLabelSelector = TargetLabel + "=true"
)

// ConfigMap data keys.
const (
	KeyRelationshipID           = "relationshipId"
	KeyTargetName               = "targetName"
	KeyTargetElementID          = "targetElementId"
	KeyTargetElementType        = "targetElementType"
	KeyMetadataSource           = "metadataSource"
	KeyPermittedSynchronization = "permittedSynchronization"
	KeyConfiguration            = "configuration"
)

// RelationshipID returns the relationship id of a target ConfigMap. Without
// an explicit relationshipId key it falls back to namespace/name.
func RelationshipID(cm *corev1.ConfigMap) string {
	if id := cm.Data[KeyRelationshipID]; id != "" {
		return id
	}
	return cm.Namespace + "/" + cm.Name
}

// Descriptor converts a target ConfigMap into a TargetDescriptor.
func Descriptor(cm *corev1.ConfigMap) (catalog.TargetDescriptor, error) {
	d := catalog.TargetDescriptor{
		RelationshipID:              RelationshipID(cm),
		TargetName:                  cm.Data[KeyTargetName],
		TargetElementID:             cm.Data[KeyTargetElementID],
		TargetElementType:           cm.Data[KeyTargetElementType],
		MetadataSourceQualifiedName: cm.Data[KeyMetadataSource],
		PermittedSynchronization:    catalog.PermittedSynchronization(cm.Data[KeyPermittedSynchronization]),
	}
	if d.TargetName == "" {
		d.TargetName = cm.Name
	}
	if !d.PermittedSynchronization.Valid() {
		return d, fmt.Errorf("configmap %s/%s: unknown permitted synchronization %q",
			cm.Namespace, cm.Name, d.PermittedSynchronization)
	}
	if raw := cm.Data[KeyConfiguration]; raw != "" {
		if err := yaml.Unmarshal([]byte(raw), &d.ConfigurationProperties); err != nil {
			return d, fmt.Errorf("configmap %s/%s: parse configuration: %w", cm.Namespace, cm.Name, err)
		}
	}

	// The stamp follows the declaration only. ResourceVersion also moves on
	// label, annotation and status edits.
	stamp, err := catalog.ContentStamp(d)
	if err != nil {
		return d, fmt.Errorf("configmap %s/%s: %w", cm.Namespace, cm.Name, err)
	}
	d.VersionStamp = stamp
	return d, nil
}
