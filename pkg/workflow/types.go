// Package workflow implements the execution engine that interprets business
// handler definitions: extraction of parameters from raw input text, ordered
// step execution against an injected toolset, and advisory rule evaluation.
// The engine holds no mutable state across executions.
package workflow

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the execution state machine phase.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseExtracting      Phase = "extracting"
	PhaseValidating      Phase = "validating"
	PhaseExecuting       Phase = "executing"
	PhaseEvaluatingRules Phase = "evaluating_rules"
	PhaseSucceeded       Phase = "succeeded"
	PhaseFailed          Phase = "failed"
)

// Error codes.
const (
	CodeUnknownHandler    = "UNKNOWN_HANDLER"
	CodeMissingParameter  = "MISSING_PARAMETER"
	CodeUnknownAction     = "UNKNOWN_ACTION"
	CodeStepFailed        = "STEP_FAILED"
	CodeRuleActionFailure = "RULE_ACTION_FAILURE"
)

// Error is a classified workflow execution error.
type Error struct {
	// Code is the stable machine-readable code.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Handler is the handler name being executed.
	Handler string `json:"handler,omitempty"`

	// Step is the failing step position, if the error is step-scoped.
	Step int `json:"step,omitempty"`

	// Action is the action identifier involved, if any.
	Action string `json:"action,omitempty"`

	// Parameter is the parameter name involved, if any.
	Parameter string `json:"parameter,omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Handler != "" {
		msg += fmt.Sprintf(" (handler=%s", e.Handler)
		if e.Action != "" {
			msg += fmt.Sprintf(", action=%s", e.Action)
		}
		if e.Parameter != "" {
			msg += fmt.Sprintf(", parameter=%s", e.Parameter)
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

// Is implements error matching for errors.Is: a target with only a Code set
// matches any workflow error carrying that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// NewError creates a workflow error with the given code.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithHandler adds handler context to the error.
func (e *Error) WithHandler(handler string) *Error {
	e.Handler = handler
	return e
}

// WithStep adds the failing step position to the error.
func (e *Error) WithStep(position int) *Error {
	e.Step = position
	return e
}

// WithAction adds action context to the error.
func (e *Error) WithAction(action string) *Error {
	e.Action = action
	return e
}

// WithParameter adds parameter context to the error.
func (e *Error) WithParameter(parameter string) *Error {
	e.Parameter = parameter
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// HasCode reports whether err is a workflow error carrying the given code.
func HasCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// Note records a non-fatal event during rule evaluation. Rules are advisory:
// their failures are noted, never fatal.
type Note struct {
	// Condition is the rule's condition identifier.
	Condition string `json:"condition"`

	// Action is the rule's action identifier.
	Action string `json:"action"`

	// Message describes what happened.
	Message string `json:"message"`
}

// Outcome is the result of one workflow execution. Outcomes are ephemeral and
// produced fresh per execution, never persisted by the engine itself.
type Outcome struct {
	// ExecutionID uniquely identifies this execution.
	ExecutionID string `json:"execution_id"`

	// Handler is the executed handler name.
	Handler string `json:"handler"`

	// Phase is the terminal phase, PhaseSucceeded or PhaseFailed.
	Phase Phase `json:"phase"`

	// Success reports whether the run succeeded.
	Success bool `json:"success"`

	// Payload is the last executed step's result.
	Payload any `json:"payload,omitempty"`

	// Results maps action identifiers to their returned values, including
	// rule action results. Later steps see these as parameters.
	Results map[string]any `json:"results,omitempty"`

	// Extracted holds the parameters pulled out of the input text.
	Extracted map[string]string `json:"extracted,omitempty"`

	// Notes records non-fatal rule evaluation events.
	Notes []Note `json:"notes,omitempty"`

	// Err is the first fatal error, set when Success is false.
	Err *Error `json:"error,omitempty"`

	// StartedAt and FinishedAt bound the execution.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
