package kube

import (
	"context"
	"fmt"
	"sort"
	"sync"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"targetsync/internal/catalog"
)

// Source is a catalog.TargetSource over labelled ConfigMaps. A listing at
// offset 0 takes a fresh snapshot and later pages are cut from it, so a sweep
// sees one consistent view even while ConfigMaps change.
type Source struct {
	client    client.Client
	namespace string
	selector  labels.Selector

	mu       sync.Mutex
	snapshot []catalog.TargetDescriptor
}

// NewSource creates a source. An empty namespace lists all namespaces and an
// empty selector means DefaultLabelSelector.
func NewSource(c client.Client, namespace, selector string) (*Source, error) {
	if selector == "" {
		selector = DefaultLabelSelector
	}
	sel, err := labels.Parse(selector)
	if err != nil {
		return nil, fmt.Errorf("parse label selector %q: %w", selector, err)
	}
	return &Source{client: c, namespace: namespace, selector: sel}, nil
}

func (s *Source) List(ctx context.Context, offset, pageSize int) ([]catalog.TargetDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if offset == 0 || s.snapshot == nil {
		snap, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.snapshot = snap
	}

	if offset >= len(s.snapshot) {
		return nil, nil
	}
	end := min(offset+pageSize, len(s.snapshot))
	page := make([]catalog.TargetDescriptor, 0, end-offset)
	for _, d := range s.snapshot[offset:end] {
		page = append(page, d.Clone())
	}
	return page, nil
}

func (s *Source) load(ctx context.Context) ([]catalog.TargetDescriptor, error) {
	var list corev1.ConfigMapList
	opts := []client.ListOption{client.MatchingLabelsSelector{Selector: s.selector}}
	if s.namespace != "" {
		opts = append(opts, client.InNamespace(s.namespace))
	}
	if err := s.client.List(ctx, &list, opts...); err != nil {
		return nil, fmt.Errorf("list target configmaps: %w", err)
	}

	sort.Slice(list.Items, func(i, j int) bool {
		if list.Items[i].Namespace != list.Items[j].Namespace {
			return list.Items[i].Namespace < list.Items[j].Namespace
		}
		return list.Items[i].Name < list.Items[j].Name
	})

	targets := make([]catalog.TargetDescriptor, 0, len(list.Items))
	for i := range list.Items {
		d, err := Descriptor(&list.Items[i])
		if err != nil {
			return nil, err
		}
		targets = append(targets, d)
	}
	return targets, nil
}
