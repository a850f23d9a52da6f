package handlers

import "sync"

// Registry stores handler definitions keyed by name. Registration replaces
// any prior definition atomically: the whole definition is swapped under the
// write lock, so readers never observe a partially-updated handler.
type Registry struct {
	// mu protects handlers and order.
	mu sync.RWMutex

	// handlers maps handler name to its definition.
	handlers map[string]*Definition

	// order records handler names in registration order.
	order []string
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]*Definition),
	}
}

// Register validates and stores a handler definition, replacing any prior
// definition of the same name. The definition is cloned before storage so the
// caller cannot mutate the registered copy.
func (r *Registry) Register(def *Definition) error {
	stored := def.Clone()
	if err := stored.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[stored.Name]; !exists {
		r.order = append(r.order, stored.Name)
	}
	r.handlers[stored.Name] = stored
	return nil
}

// Get returns a copy of the named handler definition.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.handlers[name]
	if !ok {
		return nil, false
	}
	return def.Clone(), true
}

// List returns (name, description) summaries in registration order.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		def := r.handlers[name]
		out = append(out, Summary{Name: def.Name, Description: def.Description})
	}
	return out
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
