package registry

import (
	"sort"
	"sync"
)

// Registry is the concurrent store of RequestedTarget records keyed by
// relationship id. It holds at most one record per id.
//
// The reconciler is the only writer. Readers such as the event router work
// on the copies returned by Values.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]*RequestedTarget
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		targets: make(map[string]*RequestedTarget),
	}
}

// Put stores rec under its relationship id and returns the record it
// replaced, if any.
func (r *Registry) Put(rec *RequestedTarget) (*RequestedTarget, bool) {
	if rec == nil || rec.RelationshipID == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, existed := r.targets[rec.RelationshipID]
	r.targets[rec.RelationshipID] = rec
	return old, existed
}

// Get returns the record for id.
func (r *Registry) Get(id string) (*RequestedTarget, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.targets[id]
	return rec, ok
}

// Remove deletes and returns the record for id.
func (r *Registry) Remove(id string) (*RequestedTarget, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.targets[id]
	if ok {
		delete(r.targets, id)
	}
	return rec, ok
}

// Values returns a snapshot of all records sorted by relationship id.
// The slice is owned by the caller; later registry writes do not affect it.
func (r *Registry) Values() []*RequestedTarget {
	r.mu.RLock()
	values := make([]*RequestedTarget, 0, len(r.targets))
	for _, rec := range r.targets {
		values = append(values, rec)
	}
	r.mu.RUnlock()

	sort.Slice(values, func(i, j int) bool {
		return values[i].RelationshipID < values[j].RelationshipID
	})
	return values
}

// IDs returns the set of relationship ids currently held.
func (r *Registry) IDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{}, len(r.targets))
	for id := range r.targets {
		ids[id] = struct{}{}
	}
	return ids
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}
