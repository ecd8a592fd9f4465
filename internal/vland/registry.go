package vland

import "sync"

// registryEntry is the shared-resource bookkeeping for one bridge or trunk
// child name: how many bindings reference it, and which cleanup actions
// this daemon is responsible for once the last reference goes away.
type registryEntry struct {
	ifname string
	usage  int
	clean  CleanFlags
}

// Registry is the table mapping a shared resource name to its refcount and
// cleanup obligations. Each Topology creates its own Registry, so the table
// is per BSS: two BSSes that use the same bridge or trunk-child name count
// it in separate registries. All mutation is
// expected to happen on the topology manager's single event-loop goroutine;
// the mutex here exists only so tests can exercise several BSS fixtures
// concurrently under go test -race, not to support concurrent production
// writers.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
}

// NewRegistry returns an empty shared-resource registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Get records a reference to ifname. If an entry already exists its usage
// is incremented and clean is OR'd in. Otherwise, if clean is non-zero, a
// new entry is created with usage=1. A zero-clean Get against an absent
// name is a pure reference with nothing to destroy later, so no entry is
// created at all.
func (r *Registry) Get(ifname string, clean CleanFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[ifname]; ok {
		e.usage++
		e.clean |= clean
		return
	}
	if clean == 0 {
		return
	}
	r.entries[ifname] = &registryEntry{ifname: ifname, usage: 1, clean: clean}
}

// Put releases one reference to ifname. If usage remains positive it
// returns (0, false): the caller must not tear anything down. Once usage
// reaches zero the entry is removed and its accumulated clean bits are
// returned so the caller can perform the matching teardown.
func (r *Registry) Put(ifname string) (clean CleanFlags, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[ifname]
	if !ok {
		return 0, false
	}
	e.usage--
	if e.usage > 0 {
		return 0, false
	}
	delete(r.entries, ifname)
	return e.clean, true
}

// Usage reports the current reference count for ifname, or 0 if absent.
// Used by tests asserting scenario 3 (two stations sharing a bridge).
func (r *Registry) Usage(ifname string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[ifname]; ok {
		return e.usage
	}
	return 0
}

// Empty reports whether the registry holds no entries, the invariant that
// must hold after any sequence of balanced Get/Put calls.
func (r *Registry) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) == 0
}

// Snapshot returns a point-in-time copy of every live entry, for debug
// introspection and tests.
func (r *Registry) Snapshot() []RegistryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, RegistryEntry{IfName: e.ifname, Usage: e.usage, Clean: e.clean})
	}
	return out
}

// RegistryEntry is the exported, read-only view of a registryEntry.
type RegistryEntry struct {
	IfName string
	Usage  int
	Clean  CleanFlags
}
