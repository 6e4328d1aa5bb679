package registry

import (
	"sync"
	"time"

	"github.com/tunbase/apphost/types"
)

// Entry represents a registered package in the registry
type Entry struct {
	Package      *types.ExtensionPackage
	Status       string
	Enabled      bool
	RegisteredAt time.Time
}

// Registry stores installed extension packages keyed by metadata id.
// All mutation goes through the runtime coordinator; the registry itself
// only guards concurrent map access.
type Registry struct {
	entries map[string]*Entry
	mu      sync.RWMutex
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Add inserts an entry for the given package. Returns false if the
// package id is already present.
func (r *Registry) Add(pkg *types.ExtensionPackage, status string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := pkg.Metadata.ID
	if _, exists := r.entries[id]; exists {
		return false
	}
	r.entries[id] = &Entry{
		Package:      pkg,
		Status:       status,
		Enabled:      enabled,
		RegisteredAt: time.Now(),
	}
	return true
}

// Get returns the entry for the given package id
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	return entry, ok
}

// Has reports whether the package id is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[id]
	return ok
}

// Remove deletes the entry for the given package id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

// SetEnabled flips the enabled flag and status of a registered package
func (r *Registry) SetEnabled(id string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	entry.Enabled = enabled
	if enabled {
		entry.Status = types.StatusActive
	} else {
		entry.Status = types.StatusDisabled
	}
	return true
}

// SetStatus sets the status of a registered package
func (r *Registry) SetStatus(id string, status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	entry.Status = status
	return true
}

// List returns a copy of all entries keyed by package id
func (r *Registry) List() map[string]*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Entry, len(r.entries))
	for k, v := range r.entries {
		result[k] = v
	}
	return result
}

// AppByID returns the App definition with the given App id from any
// registered package, together with its registry entry. App ids live in
// a separate namespace from package ids.
func (r *Registry) AppByID(appID string) (*types.AppDefinition, *Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		if entry.Package.App != nil && entry.Package.App.ID == appID {
			return entry.Package.App, entry, true
		}
	}
	return nil, nil, false
}

// EnabledApps returns the App definitions of all enabled packages
func (r *Registry) EnabledApps() []*types.AppDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var apps []*types.AppDefinition
	for _, entry := range r.entries {
		if entry.Enabled && entry.Package.App != nil {
			apps = append(apps, entry.Package.App)
		}
	}
	return apps
}

// Count returns the number of registered packages
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Clear removes all entries (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*Entry)
}
