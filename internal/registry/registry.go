// Package registry holds the mapping from normalized marker identity to the
// last known live tracking handle.
//
// The registry is not internally locked. It is owned by the reconciler, which
// guards it together with the active selection, spawn tickets and display
// handles under one critical section: those fields are causally linked and
// must be observed as a group.
package registry

import "github.com/qrstage/qrstage/internal/tracking"

// Tracked pairs an identity with its latest handle.
type Tracked struct {
	Identity string
	Handle   tracking.Handle
}

// Registry maps identities to handles while preserving first-seen order.
// The order is the selection tie-break: among candidates at exactly equal
// distance, the earliest-registered identity wins.
type Registry struct {
	handles map[string]tracking.Handle
	order   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		handles: make(map[string]tracking.Handle),
	}
}

// Upsert stores the handle for identity, overwriting any previous one, and
// reports whether the identity was already present. A re-detected identity
// keeps its original position in the iteration order.
func (r *Registry) Upsert(identity string, h tracking.Handle) (present bool) {
	_, present = r.handles[identity]
	if !present {
		r.order = append(r.order, identity)
	}
	r.handles[identity] = h
	return present
}

// Remove deletes the identity and reports whether it was present.
func (r *Registry) Remove(identity string) (present bool) {
	if _, present = r.handles[identity]; !present {
		return false
	}
	delete(r.handles, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the handle for identity.
func (r *Registry) Get(identity string) (tracking.Handle, bool) {
	h, ok := r.handles[identity]
	return h, ok
}

// Len returns the number of registered identities.
func (r *Registry) Len() int {
	return len(r.handles)
}

// Snapshot returns a point-in-time copy in first-seen order, safe to iterate
// while the registry is mutated afterwards.
func (r *Registry) Snapshot() []Tracked {
	out := make([]Tracked, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Tracked{Identity: id, Handle: r.handles[id]})
	}
	return out
}
