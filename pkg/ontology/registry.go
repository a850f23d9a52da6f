package ontology

import (
	"fmt"
	"sync"
	"time"
)

// Registry is the schema registry. It owns all class definitions and supports
// concurrent readers with serialized writers; a class published by DefineClass
// is always complete, so readers never observe a partially-defined class.
type Registry struct {
	// mu protects classes and order.
	mu sync.RWMutex

	// classes maps class name to its definition.
	classes map[string]*ClassDefinition

	// order records class names in insertion order for deterministic listing.
	order []string
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*ClassDefinition),
	}
}

// DefineClass defines a class or extends an existing one. Redefinition merges
// properties not already present (idempotent extension); a supplied property
// whose name collides with an existing property of a different type fails with
// a type-conflict error and leaves the class unchanged.
func (r *Registry) DefineClass(name string, properties []PropertyDefinition) (*ClassDefinition, error) {
	if name == "" {
		return nil, NewSchemaError(CodeTypeConflict, "class name is required")
	}

	// Normalize and validate the supplied properties before taking the lock.
	normalized := make([]PropertyDefinition, 0, len(properties))
	seen := make(map[string]PropertyType, len(properties))
	for _, p := range properties {
		if p.Name == "" {
			return nil, NewSchemaError(CodeDuplicateProperty, "property name is required").WithClass(name)
		}
		if !p.Type.IsValid() {
			return nil, NewSchemaError(CodeTypeConflict,
				fmt.Sprintf("unknown property type %q", p.Type)).WithClass(name).WithProperty(p.Name)
		}
		if p.Type == TypeReference && p.RefClass == "" {
			return nil, NewSchemaError(CodeTypeConflict,
				"reference property requires a referenced class").WithClass(name).WithProperty(p.Name)
		}
		if prev, ok := seen[p.Name]; ok {
			if prev != p.Type {
				return nil, NewSchemaError(CodeTypeConflict,
					fmt.Sprintf("property declared twice with types %s and %s", prev, p.Type)).
					WithClass(name).WithProperty(p.Name)
			}
			continue
		}
		if p.Label == "" {
			p.Label = p.Name
		}
		seen[p.Name] = p.Type
		normalized = append(normalized, p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.classes[name]
	if !ok {
		now := time.Now()
		class := &ClassDefinition{
			Name:       name,
			Properties: normalized,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		r.classes[name] = class
		r.order = append(r.order, name)
		return class.Clone(), nil
	}

	// Merge pass: detect conflicts before mutating anything so that a failed
	// redefinition leaves the class untouched.
	var added []PropertyDefinition
	for _, p := range normalized {
		current, declared := existing.Property(p.Name)
		if !declared {
			added = append(added, p)
			continue
		}
		if current.Type != p.Type {
			return nil, NewSchemaError(CodeTypeConflict,
				fmt.Sprintf("property already declared as %s, redefined as %s", current.Type, p.Type)).
				WithClass(name).WithProperty(p.Name)
		}
		if current.Type == TypeReference && current.RefClass != p.RefClass {
			return nil, NewSchemaError(CodeTypeConflict,
				fmt.Sprintf("reference property already targets %s, redefined to target %s",
					current.RefClass, p.RefClass)).
				WithClass(name).WithProperty(p.Name)
		}
	}

	if len(added) > 0 {
		// Publish a fresh definition so concurrent readers holding the old
		// pointer keep a consistent view.
		merged := existing.Clone()
		merged.Properties = append(merged.Properties, added...)
		merged.UpdatedAt = time.Now()
		r.classes[name] = merged
		return merged.Clone(), nil
	}

	return existing.Clone(), nil
}

// GetClass returns a copy of the named class definition.
func (r *Registry) GetClass(name string) (*ClassDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	class, ok := r.classes[name]
	if !ok {
		return nil, false
	}
	return class.Clone(), true
}

// ListClasses returns copies of all class definitions in insertion order.
func (r *Registry) ListClasses() []*ClassDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ClassDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.classes[name].Clone())
	}
	return out
}

// Len returns the number of defined classes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
