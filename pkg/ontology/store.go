package ontology

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the instance store. It owns all instances and validates every
// write against the schema registry. Reads are concurrent; writes are
// serialized per operation so no caller ever observes a half-written instance.
type Store struct {
	// schema is the registry instances are validated against.
	schema *Registry

	// mu protects instances and order.
	mu sync.RWMutex

	// instances maps instance id to the stored record.
	instances map[string]*Instance

	// order records instance ids in insertion order.
	order []string
}

// NewStore creates an empty instance store validating against schema.
func NewStore(schema *Registry) *Store {
	return &Store{
		schema:    schema,
		instances: make(map[string]*Instance),
	}
}

// CreateInstance validates the supplied properties against the named class and
// stores a new instance. On any validation failure nothing is stored.
func (s *Store) CreateInstance(className string, properties map[string]any) (string, error) {
	class, ok := s.schema.GetClass(className)
	if !ok {
		return "", NewValidationError(CodeUnknownClass,
			fmt.Sprintf("class %q is not defined", className)).WithClass(className)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	validated, err := s.validateLocked(class, properties)
	if err != nil {
		return "", err
	}

	// The 8-hex id fragment is short enough that collisions are possible at
	// scale; regenerate until the id is unused. Ids stay stable once issued.
	id := newInstanceID(className)
	for _, taken := s.instances[id]; taken; _, taken = s.instances[id] {
		id = newInstanceID(className)
	}
	now := time.Now()
	s.instances[id] = &Instance{
		ID:         id,
		Class:      className,
		Properties: validated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.order = append(s.order, id)
	return id, nil
}

// GetInstance returns a copy of the instance with the given id.
func (s *Store) GetInstance(id string) (*Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, false
	}
	return inst.Clone(), true
}

// ListInstances returns copies of instances in insertion order. An empty
// className lists every instance.
func (s *Store) ListInstances(className string) []*Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Instance, 0, len(s.order))
	for _, id := range s.order {
		inst := s.instances[id]
		if className != "" && inst.Class != className {
			continue
		}
		out = append(out, inst.Clone())
	}
	return out
}

// CountInstances returns the number of instances of the named class, zero if
// the class has none or does not exist.
func (s *Store) CountInstances(className string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, inst := range s.instances {
		if inst.Class == className {
			n++
		}
	}
	return n
}

// FindInstanceByProperty returns the first instance (in insertion order) of
// the named class whose property equals value. The value is normalized
// against the declared property type first, so an int matches a stored
// integer and an integral int matches a stored float.
func (s *Store) FindInstanceByProperty(className, property string, value any) (*Instance, bool) {
	if class, ok := s.schema.GetClass(className); ok {
		if prop, declared := class.Property(property); declared {
			normalized, err := normalizeValue(prop, value)
			if err != nil {
				// No stored value can equal a value of the wrong type.
				return nil, false
			}
			value = normalized
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		inst := s.instances[id]
		if inst.Class != className {
			continue
		}
		if v, ok := inst.Properties[property]; ok && v == value {
			return inst.Clone(), true
		}
	}
	return nil, false
}

// UpdateInstance revalidates the supplied properties against the instance's
// class and applies them atomically. Properties not named keep their values.
func (s *Store) UpdateInstance(id string, properties map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instances[id]
	if !ok {
		return NewValidationError(CodeUnknownInstance,
			fmt.Sprintf("instance %q does not exist", id)).WithInstance(id)
	}

	class, ok := s.schema.GetClass(inst.Class)
	if !ok {
		return NewValidationError(CodeUnknownClass,
			fmt.Sprintf("class %q is not defined", inst.Class)).WithClass(inst.Class).WithInstance(id)
	}

	validated, err := s.validateLocked(class, properties)
	if err != nil {
		return err
	}

	updated := inst.Clone()
	for k, v := range validated {
		updated.Properties[k] = v
	}
	updated.UpdatedAt = time.Now()
	s.instances[id] = updated
	return nil
}

// DeleteInstance removes an instance. Deletion is rejected while any other
// instance holds a reference-typed property pointing at id, preserving
// referential integrity.
func (s *Store) DeleteInstance(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[id]; !ok {
		return NewValidationError(CodeUnknownInstance,
			fmt.Sprintf("instance %q does not exist", id)).WithInstance(id)
	}

	for _, other := range s.instances {
		if other.ID == id {
			continue
		}
		class, ok := s.schema.GetClass(other.Class)
		if !ok {
			continue
		}
		for name, value := range other.Properties {
			prop, declared := class.Property(name)
			if declared && prop.Type == TypeReference && value == id {
				return NewValidationError(CodeReferenceHeld,
					fmt.Sprintf("instance %q is referenced by %q", id, other.ID)).
					WithInstance(id).WithProperty(name)
			}
		}
	}

	delete(s.instances, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// validateLocked type-checks the supplied properties against the class and
// returns normalized values. Callers must hold s.mu for reference resolution.
func (s *Store) validateLocked(class *ClassDefinition, properties map[string]any) (map[string]any, error) {
	validated := make(map[string]any, len(properties))
	for name, value := range properties {
		prop, declared := class.Property(name)
		if !declared {
			return nil, NewValidationError(CodeUnknownProperty,
				fmt.Sprintf("property %q is not declared on class %q", name, class.Name)).
				WithClass(class.Name).WithProperty(name)
		}

		normalized, err := normalizeValue(prop, value)
		if err != nil {
			return nil, err.WithClass(class.Name)
		}

		if prop.Type == TypeReference {
			refID := normalized.(string)
			target, ok := s.instances[refID]
			if !ok || target.Class != prop.RefClass {
				return nil, NewValidationError(CodeDanglingReference,
					fmt.Sprintf("property %q must reference an existing %s instance, got %q",
						name, prop.RefClass, refID)).
					WithClass(class.Name).WithProperty(name)
			}
		}

		validated[name] = normalized
	}
	return validated, nil
}

// normalizeValue checks a runtime value against the declared property type and
// converts it to the canonical stored representation. Numeric widening follows
// JSON decoding: float64 with an integral value is accepted for integers.
func normalizeValue(prop PropertyDefinition, value any) (any, *Error) {
	mismatch := func() *Error {
		return NewValidationError(CodeTypeMismatch,
			fmt.Sprintf("property %q expects %s, got %T", prop.Name, prop.Type, value)).
			WithProperty(prop.Name)
	}

	switch prop.Type {
	case TypeString, TypeReference:
		v, ok := value.(string)
		if !ok || (prop.Type == TypeReference && v == "") {
			return nil, mismatch()
		}
		return v, nil
	case TypeInteger:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		}
		return nil, mismatch()
	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, mismatch()
	case TypeBoolean:
		v, ok := value.(bool)
		if !ok {
			return nil, mismatch()
		}
		return v, nil
	}
	return nil, mismatch()
}

// newInstanceID builds an id in the form <class>_<uuid fragment>, lowercased,
// e.g. "client_a1b2c3d4". A variable so tests can force id collisions.
var newInstanceID = func(className string) string {
	u := uuid.New()
	return strings.ToLower(className) + "_" + hex.EncodeToString(u[:])[:8]
}
