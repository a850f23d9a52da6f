// Package conditions implements a Rego-backed condition set for workflow
// rules. Conditions are authored as Rego modules registered by identifier and
// evaluated against the intermediate results of an execution, so operators can
// express rule predicates as data without recompiling.
package conditions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/ontoflow/ontoflow/pkg/telemetry"
	"github.com/ontoflow/ontoflow/pkg/workflow"
)

// RegoConditionSet resolves condition identifiers to prepared Rego queries.
// A condition holds when its module's `allow` rule evaluates to true for the
// input document {"results": <intermediate results>}.
type RegoConditionSet struct {
	logger *telemetry.Logger

	mu         sync.RWMutex
	conditions map[string]*compiledCondition
}

type compiledCondition struct {
	name     string
	source   string
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewRegoConditionSet creates a condition set preloaded with the built-in
// conditions.
func NewRegoConditionSet(logger *telemetry.Logger) (*RegoConditionSet, error) {
	cs := &RegoConditionSet{
		logger:     logger.NewComponentLogger("conditions"),
		conditions: make(map[string]*compiledCondition),
	}
	for name, source := range builtinConditions {
		if err := cs.Register(name, source); err != nil {
			return nil, fmt.Errorf("failed to compile built-in condition %s: %w", name, err)
		}
	}
	return cs, nil
}

// Register compiles a Rego module and stores it under the given identifier,
// replacing any prior condition of the same name. The module must declare a
// package and an `allow` rule.
func (cs *RegoConditionSet) Register(name, source string) error {
	if name == "" {
		return fmt.Errorf("condition name is required")
	}

	pkg := extractPackageName(source)
	if pkg == "" {
		return fmt.Errorf("condition %q: rego module declares no package", name)
	}

	query, err := rego.New(
		rego.Query(fmt.Sprintf("data.%s.allow", pkg)),
		rego.Module(name+".rego", source),
	).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("condition %q does not compile: %w", name, err)
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.conditions[name] = &compiledCondition{
		name:     name,
		source:   source,
		query:    query,
		compiled: time.Now(),
	}
	return nil
}

// Names returns the registered condition identifiers.
func (cs *RegoConditionSet) Names() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.conditions))
	for name := range cs.conditions {
		names = append(names, name)
	}
	return names
}

// Condition implements workflow.ConditionSet.
func (cs *RegoConditionSet) Condition(name string) (workflow.ConditionFunc, bool) {
	cs.mu.RLock()
	cc, ok := cs.conditions[name]
	cs.mu.RUnlock()
	if !ok {
		return nil, false
	}

	return func(ctx context.Context, results map[string]any) (bool, error) {
		return cs.evaluate(ctx, cc, results)
	}, true
}

func (cs *RegoConditionSet) evaluate(ctx context.Context, cc *compiledCondition, results map[string]any) (bool, error) {
	input := map[string]any{"results": results}

	rs, err := cc.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("condition %q evaluation failed: %w", cc.name, err)
	}

	// An undefined allow rule means the condition does not hold.
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	holds, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q: allow rule must produce a boolean, got %T",
			cc.name, rs[0].Expressions[0].Value)
	}

	cs.logger.WithField("condition", cc.name).WithField("holds", holds).Trace("condition evaluated")
	return holds, nil
}

// extractPackageName pulls the package path out of a Rego module.
func extractPackageName(source string) string {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return ""
}
