package ontology

import "fmt"

// RestoreClass installs a persisted class definition, preserving its
// timestamps. It is meant for rebuilding a registry from storage and fails if
// the class is already defined; incremental growth goes through DefineClass.
func (r *Registry) RestoreClass(def *ClassDefinition) error {
	if def.Name == "" {
		return NewSchemaError(CodeTypeConflict, "class name is required")
	}
	for _, p := range def.Properties {
		if !p.Type.IsValid() {
			return NewSchemaError(CodeTypeConflict,
				fmt.Sprintf("unknown property type %q", p.Type)).WithClass(def.Name).WithProperty(p.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[def.Name]; exists {
		return NewSchemaError(CodeDuplicateProperty,
			fmt.Sprintf("class %q is already defined", def.Name)).WithClass(def.Name)
	}
	r.classes[def.Name] = def.Clone()
	r.order = append(r.order, def.Name)
	return nil
}

// Restore bulk-loads persisted instances, preserving ids and timestamps.
// Every instance is revalidated against the current schema; references are
// checked against the whole restored set, so restore order does not matter.
// On any failure nothing is loaded: the store is left exactly as it was.
func (s *Store) Restore(instances []*Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string]*Instance, len(instances))
	for _, inst := range instances {
		if inst.ID == "" {
			return NewValidationError(CodeUnknownInstance, "restored instance has no id")
		}
		if _, dup := staged[inst.ID]; dup {
			return NewValidationError(CodeUnknownInstance,
				fmt.Sprintf("instance %q appears twice in the restored set", inst.ID)).WithInstance(inst.ID)
		}
		if _, exists := s.instances[inst.ID]; exists {
			return NewValidationError(CodeUnknownInstance,
				fmt.Sprintf("instance %q already exists", inst.ID)).WithInstance(inst.ID)
		}
		staged[inst.ID] = inst
	}

	validated := make([]*Instance, 0, len(instances))
	for _, inst := range instances {
		class, ok := s.schema.GetClass(inst.Class)
		if !ok {
			return NewValidationError(CodeUnknownClass,
				fmt.Sprintf("class %q is not defined", inst.Class)).
				WithClass(inst.Class).WithInstance(inst.ID)
		}

		rec := inst.Clone()
		rec.Properties = make(map[string]any, len(inst.Properties))
		for name, value := range inst.Properties {
			prop, declared := class.Property(name)
			if !declared {
				return NewValidationError(CodeUnknownProperty,
					fmt.Sprintf("property %q is not declared on class %q", name, class.Name)).
					WithClass(class.Name).WithProperty(name).WithInstance(inst.ID)
			}
			normalized, err := normalizeValue(prop, value)
			if err != nil {
				return err.WithClass(class.Name).WithInstance(inst.ID)
			}
			if prop.Type == TypeReference {
				refID := normalized.(string)
				target, held := s.instances[refID]
				if !held {
					target, held = staged[refID]
				}
				if !held || target.Class != prop.RefClass {
					return NewValidationError(CodeDanglingReference,
						fmt.Sprintf("property %q must reference an existing %s instance, got %q",
							name, prop.RefClass, refID)).
						WithClass(class.Name).WithProperty(name).WithInstance(inst.ID)
				}
			}
			rec.Properties[name] = normalized
		}
		validated = append(validated, rec)
	}

	for _, inst := range validated {
		s.instances[inst.ID] = inst
		s.order = append(s.order, inst.ID)
	}
	return nil
}
