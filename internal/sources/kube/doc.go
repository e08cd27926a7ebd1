// Package kube serves catalog targets from labelled Kubernetes ConfigMaps.
//
// Source lists the ConfigMaps through a controller-runtime client and is used
// by the reconciler. Informer watches the same ConfigMaps with a client-go
// shared informer and forwards add, update and delete notifications as
// catalog events.
//
// A target ConfigMap looks like:
//
//	apiVersion: v1
//	kind: ConfigMap
//	metadata:
//	  name: orders
//	  labels:
//	    targetsync.io/catalog-target: "true"
//	data:
//	  relationshipId: rel-orders
//	  targetElementId: elem-17
//	  targetElementType: table
//	  configuration: |
//	    schema: sales
//
// The ConfigMap resourceVersion is the version stamp.
package kube
