package event

import (
	"sort"
	"sync"
)

// Registry manages listener references organized by event name and priority.
// It is thread-safe for concurrent access.
type Registry struct {
	mu     sync.RWMutex
	events map[string]*listenerSet
}

// listenerSet holds the priority groups of one event name, sorted by
// ascending priority. Groups emptied by Remove are kept.
type listenerSet struct {
	groups []*group
}

type group struct {
	priority Priority
	refs     []*ListenerRef
}

// entry is one flattened registration used for dispatch snapshots.
type entry struct {
	ref      *ListenerRef
	priority Priority
}

// NewRegistry creates a new listener registry.
func NewRegistry() *Registry {
	return &Registry{
		events: make(map[string]*listenerSet),
	}
}

// Add appends ref to the priority group of name, creating the event entry
// and the group if needed. Adding the same ref twice registers it twice.
func (r *Registry) Add(name string, ref *ListenerRef, priority Priority) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.events[name]
	if !ok {
		set = &listenerSet{}
		r.events[name] = set
	}

	i := sort.Search(len(set.groups), func(i int) bool {
		return set.groups[i].priority >= priority
	})
	if i < len(set.groups) && set.groups[i].priority == priority {
		set.groups[i].refs = append(set.groups[i].refs, ref)
		return
	}

	// Insert a new group at i to keep groups sorted
	set.groups = append(set.groups, nil)
	copy(set.groups[i+1:], set.groups[i:])
	set.groups[i] = &group{priority: priority, refs: []*ListenerRef{ref}}
}

// Remove removes every occurrence of ref from every priority group of name.
// Returns the number of occurrences removed.
func (r *Registry) Remove(name string, ref *ListenerRef) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.events[name]
	if !ok || ref == nil {
		return 0
	}

	removed := 0
	for _, g := range set.groups {
		kept := g.refs[:0]
		for _, existing := range g.refs {
			if existing == ref {
				removed++
				continue
			}
			kept = append(kept, existing)
		}
		// Clear the tail so removed refs can be collected
		for i := len(kept); i < len(g.refs); i++ {
			g.refs[i] = nil
		}
		g.refs = kept
	}
	return removed
}

// Has returns true if name has at least one listener in any group.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.countLocked(name) > 0
}

func (r *Registry) countLocked(name string) int {
	set, ok := r.events[name]
	if !ok {
		return 0
	}
	n := 0
	for _, g := range set.groups {
		n += len(g.refs)
	}
	return n
}

// Groups returns a copy of the priority groups of name in ascending order,
// including groups that have been emptied.
func (r *Registry) Groups(name string) []PriorityGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.events[name]
	if !ok {
		return nil
	}

	result := make([]PriorityGroup, len(set.groups))
	for i, g := range set.groups {
		refs := make([]*ListenerRef, len(g.refs))
		copy(refs, g.refs)
		result[i] = PriorityGroup{Priority: g.priority, Listeners: refs}
	}
	return result
}

// snapshot returns the listeners of name flattened in dispatch order.
// The returned slice is owned by the caller.
func (r *Registry) snapshot(name string) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := r.countLocked(name)
	if n == 0 {
		return nil
	}

	result := make([]entry, 0, n)
	for _, g := range r.events[name].groups {
		for _, ref := range g.refs {
			result = append(result, entry{ref: ref, priority: g.priority})
		}
	}
	return result
}

// Names returns all event names that have been registered, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.events) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.events))
	for name := range r.events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
