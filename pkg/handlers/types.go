// Package handlers implements the business handler registry: declarative
// descriptions of how to react to a category of request, stored as data and
// interpreted by the workflow engine. A handler bundles extraction patterns,
// an ordered step sequence, and advisory rules.
package handlers

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Step is one ordered unit of work in a handler, bound to a named action.
type Step struct {
	// Position defines execution order. Positions are unique per handler and
	// steps run in ascending order.
	Position int `json:"position" yaml:"position" validate:"min=0"`

	// Action is the toolset action identifier. Resolution is late-bound: the
	// action only has to exist at execution time (a handler may be registered
	// before its actions are).
	Action string `json:"action" yaml:"action" validate:"required"`

	// RequiredParams are the parameter names the step needs. A missing
	// required parameter fails the whole execution before any step runs.
	// Required parameters are a precondition, not a projection: at execution
	// time the action receives the full merged parameter set plus all prior
	// step results, including parameters it did not declare.
	RequiredParams []string `json:"required_params,omitempty" yaml:"required_params,omitempty"`
}

// Rule is a conditional, best-effort compensating action evaluated after all
// steps complete. Rule failures never flip a successful run to failed.
type Rule struct {
	// Condition is the predicate identifier resolved against the
	// execution's condition set.
	Condition string `json:"condition" yaml:"condition" validate:"required"`

	// Action is the toolset action to invoke when the condition holds.
	Action string `json:"action" yaml:"action" validate:"required"`
}

// Definition is a declarative business handler.
type Definition struct {
	// Name uniquely identifies the handler.
	Name string `json:"name" yaml:"name" validate:"required"`

	// Description is the human-readable summary shown by listings.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Extraction maps a named slot to an ordered list of regular expressions
	// tried against the raw input text. The first matching pattern wins per
	// slot; capture group 1 supplies the value when present, otherwise the
	// whole match does.
	Extraction map[string][]string `json:"extraction,omitempty" yaml:"extraction,omitempty"`

	// Steps is the ordered step sequence.
	Steps []Step `json:"steps" yaml:"steps" validate:"required,min=1,dive"`

	// Rules are evaluated after the steps, in declaration order.
	Rules []Rule `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`

	// compiled holds the extraction patterns compiled at registration time,
	// keyed by slot. Compiled regexps are safe for concurrent use and are
	// shared between copies of the definition.
	compiled map[string][]*regexp.Regexp
}

var validate = validator.New()

// Validate checks the definition for structural problems: validator tags,
// duplicate step positions, empty required-parameter names, and extraction
// patterns that do not compile. On success the extraction patterns are
// compiled and cached on the definition.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("handler %q: %w", d.Name, err)
	}

	positions := make(map[int]bool, len(d.Steps))
	for _, step := range d.Steps {
		if positions[step.Position] {
			return fmt.Errorf("handler %q: duplicate step position %d", d.Name, step.Position)
		}
		positions[step.Position] = true
		for _, param := range step.RequiredParams {
			if param == "" {
				return fmt.Errorf("handler %q: step %d has an empty required parameter name", d.Name, step.Position)
			}
		}
	}

	compiled := make(map[string][]*regexp.Regexp, len(d.Extraction))
	for slot, patterns := range d.Extraction {
		if slot == "" {
			return fmt.Errorf("handler %q: extraction slot name is empty", d.Name)
		}
		for _, pattern := range patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("handler %q: slot %q pattern %q: %w", d.Name, slot, pattern, err)
			}
			compiled[slot] = append(compiled[slot], re)
		}
	}
	d.compiled = compiled
	return nil
}

// OrderedSteps returns the steps sorted by ascending position.
func (d *Definition) OrderedSteps() []Step {
	steps := make([]Step, len(d.Steps))
	copy(steps, d.Steps)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Position < steps[j].Position })
	return steps
}

// CompiledPatterns returns the compiled extraction patterns for a slot.
// Available only after Validate has run.
func (d *Definition) CompiledPatterns(slot string) []*regexp.Regexp {
	return d.compiled[slot]
}

// Clone returns a deep copy of the definition. Compiled patterns are shared;
// regexps are immutable after compilation.
func (d *Definition) Clone() *Definition {
	out := *d
	out.Extraction = make(map[string][]string, len(d.Extraction))
	for slot, patterns := range d.Extraction {
		ps := make([]string, len(patterns))
		copy(ps, patterns)
		out.Extraction[slot] = ps
	}
	out.Steps = make([]Step, len(d.Steps))
	copy(out.Steps, d.Steps)
	for i, step := range d.Steps {
		params := make([]string, len(step.RequiredParams))
		copy(params, step.RequiredParams)
		out.Steps[i].RequiredParams = params
	}
	out.Rules = make([]Rule, len(d.Rules))
	copy(out.Rules, d.Rules)
	return &out
}

// Summary is a (name, description) pair returned by listings.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
