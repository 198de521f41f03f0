package core

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// ResourceID names a GPU object tracked by a Registry.
type ResourceID uuid.UUID

func NewResourceID() ResourceID {
	return ResourceID(uuid.New())
}

func (id ResourceID) String() string {
	return uuid.UUID(id).String()
}

type registryEntry struct {
	id      ResourceID
	name    string
	release func()
}

// Registry records owned resources in creation order so they can be torn
// down in exactly the reverse order.
type Registry struct {
	mu      sync.Mutex
	entries []registryEntry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Track registers a release function and returns the id that can be used to
// release the resource early.
func (r *Registry) Track(name string, release func()) ResourceID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := NewResourceID()
	r.entries = append(r.entries, registryEntry{id: id, name: name, release: release})
	return id
}

// Release destroys a single resource ahead of the full teardown.
func (r *Registry) Release(id ResourceID) error {
	r.mu.Lock()
	var entry *registryEntry
	for i := range r.entries {
		if r.entries[i].id == id {
			e := r.entries[i]
			entry = &e
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if entry == nil {
		return errors.Newf("resource %s is not registered", id)
	}
	LogDebug("releasing %s (%s)", entry.name, id)
	entry.release()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// ReleaseAll destroys every tracked resource, newest first.
func (r *Registry) ReleaseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		LogDebug("releasing %s (%s)", entries[i].name, entries[i].id)
		entries[i].release()
	}
}
