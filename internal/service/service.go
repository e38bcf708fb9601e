// Package service owns the process-wide service set and the module
// registration sequence that populates it.
package service

import (
	"sort"
	"sync"
)

// Entry is a committed service: its capability type, the module providing
// it, and the constructed instance.
type Entry struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Instance any    `json:"-"`
}

// Record traces how one staged contribution resolved. Retained after
// startup for diagnostics.
type Record struct {
	Type     string `json:"type"`
	Module   string `json:"module"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// Registry is the live service set. Written during registration, read-only
// afterwards (modules and endpoints look services up at request time).
type Registry struct {
	services map[string]Entry
	records  []Record
	mu       sync.RWMutex
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Entry),
	}
}

// Get returns the service instance registered for a capability type.
func (r *Registry) Get(capabilityType string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.services[capabilityType]
	return entry.Instance, ok
}

// Provider returns the module currently providing a capability type.
func (r *Registry) Provider(capabilityType string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.services[capabilityType]
	return entry.Provider, ok
}

// Entries returns the committed services sorted by capability type.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	result := make([]Entry, 0, len(r.services))
	for _, entry := range r.services {
		result = append(result, entry)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}

// Records returns the contribution trace in staging order.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Record, len(r.records))
	copy(result, r.records)
	return result
}

// commit installs an entry, replacing any previous owner of the type.
func (r *Registry) commit(entry Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[entry.Type] = entry
}

// record appends a contribution trace entry.
func (r *Registry) record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}
