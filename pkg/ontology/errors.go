// Package ontology implements the schema registry and instance store that
// back the knowledge base: classes and their typed properties are declared at
// runtime, instances are validated against them on every write, and the whole
// structure stays introspectable without code changes.
package ontology

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an ontology error by the contract it violates.
type ErrorKind string

const (
	// ErrorKindSchema indicates a class or property definition problem.
	ErrorKindSchema ErrorKind = "schema"

	// ErrorKindValidation indicates an instance write that does not conform
	// to the declared schema.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindQuery indicates a malformed introspection request.
	ErrorKindQuery ErrorKind = "query"
)

// Error codes.
const (
	CodeDuplicateProperty = "DUPLICATE_PROPERTY"
	CodeTypeConflict      = "TYPE_CONFLICT"
	CodeUnknownClass      = "UNKNOWN_CLASS"
	CodeUnknownProperty   = "UNKNOWN_PROPERTY"
	CodeTypeMismatch      = "TYPE_MISMATCH"
	CodeDanglingReference = "DANGLING_REFERENCE"
	CodeReferenceHeld     = "REFERENCE_HELD"
	CodeUnknownInstance   = "UNKNOWN_INSTANCE"
	CodeInvalidQueryKind  = "INVALID_QUERY_KIND"
)

// Error is a classified ontology error with enough context to name the class,
// property, or instance that caused it.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Code is the stable machine-readable code.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Class is the class name involved, if any.
	Class string `json:"class,omitempty"`

	// Property is the property name involved, if any.
	Property string `json:"property,omitempty"`

	// Instance is the instance id involved, if any.
	Instance string `json:"instance,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
	if e.Class != "" {
		msg += fmt.Sprintf(" (class=%s", e.Class)
		if e.Property != "" {
			msg += fmt.Sprintf(", property=%s", e.Property)
		}
		if e.Instance != "" {
			msg += fmt.Sprintf(", instance=%s", e.Instance)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

// NewSchemaError creates a schema-kind error with the given code.
func NewSchemaError(code, message string) *Error {
	return &Error{Kind: ErrorKindSchema, Code: code, Message: message}
}

// NewValidationError creates a validation-kind error with the given code.
func NewValidationError(code, message string) *Error {
	return &Error{Kind: ErrorKindValidation, Code: code, Message: message}
}

// NewQueryError creates a query-kind error with the given code.
func NewQueryError(code, message string) *Error {
	return &Error{Kind: ErrorKindQuery, Code: code, Message: message}
}

// WithClass adds class context to the error.
func (e *Error) WithClass(class string) *Error {
	e.Class = class
	return e
}

// WithProperty adds property context to the error.
func (e *Error) WithProperty(property string) *Error {
	e.Property = property
	return e
}

// WithInstance adds instance context to the error.
func (e *Error) WithInstance(id string) *Error {
	e.Instance = id
	return e
}

// IsSchemaError reports whether err is an ontology schema error.
func IsSchemaError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindSchema
}

// IsValidationError reports whether err is an ontology validation error.
func IsValidationError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindValidation
}

// IsQueryError reports whether err is an introspection query error.
func IsQueryError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ErrorKindQuery
}

// HasCode reports whether err is an ontology error carrying the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
