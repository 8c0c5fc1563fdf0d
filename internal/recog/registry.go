package recog

import (
	"fmt"
	"sync"
)

// Registry holds the available recognition backends and the current
// selection. The first backend registered becomes the selection, so a
// runtime with a single configured backend needs no explicit Select call.
type Registry struct {
	mu       sync.RWMutex
	names    []string
	backends map[string]Recognizer
	selected string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Recognizer)}
}

// Register adds a backend under name, replacing any previous backend with
// the same name. The first registration becomes the current selection.
func (r *Registry) Register(name string, backend Recognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; !ok {
		r.names = append(r.names, name)
	}
	r.backends[name] = backend
	if r.selected == "" {
		r.selected = name
	}
}

// Select makes the named backend current.
func (r *Registry) Select(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; !ok {
		return fmt.Errorf("unknown recognizer %q", name)
	}
	r.selected = name
	return nil
}

// Current returns the selected backend, or false when none is registered.
func (r *Registry) Current() (Recognizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	backend, ok := r.backends[r.selected]
	return backend, ok
}

// Names lists the registered backend names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}
