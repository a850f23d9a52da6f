package ontology

import (
	"time"
)

// PropertyType is the fixed enumeration of declared property types.
type PropertyType string

const (
	// TypeString holds UTF-8 text.
	TypeString PropertyType = "string"

	// TypeInteger holds whole numbers, stored as int64.
	TypeInteger PropertyType = "integer"

	// TypeFloat holds floating-point numbers, stored as float64.
	TypeFloat PropertyType = "float"

	// TypeBoolean holds true/false.
	TypeBoolean PropertyType = "boolean"

	// TypeReference holds the id of an instance of another class.
	TypeReference PropertyType = "reference"
)

// IsValid reports whether t is one of the declared property types.
func (t PropertyType) IsValid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBoolean, TypeReference:
		return true
	}
	return false
}

// PropertyDefinition declares one typed property of a class.
type PropertyDefinition struct {
	// Name is the property name, unique within its owning class.
	Name string `json:"name" validate:"required"`

	// Type is the declared value type.
	Type PropertyType `json:"type" validate:"required"`

	// RefClass is the referenced class name. Set only for reference-typed
	// properties; the class may be defined later (late binding).
	RefClass string `json:"ref_class,omitempty"`

	// Label is the human-readable label. Defaults to Name.
	Label string `json:"label,omitempty"`
}

// ClassDefinition is a named schema entry describing a set of typed properties.
type ClassDefinition struct {
	// Name is the unique, case-sensitive class name.
	Name string `json:"name"`

	// Properties are the declared properties in declaration order.
	Properties []PropertyDefinition `json:"properties"`

	// CreatedAt is when the class was first defined.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the class last gained properties.
	UpdatedAt time.Time `json:"updated_at"`
}

// Property returns the definition of the named property, if declared.
func (c *ClassDefinition) Property(name string) (PropertyDefinition, bool) {
	for _, p := range c.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDefinition{}, false
}

// Clone returns a deep copy of the class definition.
func (c *ClassDefinition) Clone() *ClassDefinition {
	out := *c
	out.Properties = make([]PropertyDefinition, len(c.Properties))
	copy(out.Properties, c.Properties)
	return &out
}

// Instance is a typed record conforming to a class.
type Instance struct {
	// ID is the generated unique identifier, stable for the instance's lifetime.
	ID string `json:"id"`

	// Class is the owning class name.
	Class string `json:"class"`

	// Properties maps property name to validated value. Integer values are
	// int64, floats float64, references string instance ids.
	Properties map[string]any `json:"properties"`

	// CreatedAt is when the instance was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the instance was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the instance. Property values are scalars, so
// copying the map is sufficient.
func (i *Instance) Clone() *Instance {
	out := *i
	out.Properties = make(map[string]any, len(i.Properties))
	for k, v := range i.Properties {
		out.Properties[k] = v
	}
	return &out
}
