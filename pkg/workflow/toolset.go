package workflow

import "context"

// ActionFunc is one named toolset operation. Params carry the merged
// extracted, caller-supplied, and earlier-step values.
type ActionFunc func(ctx context.Context, params map[string]any) (any, error)

// Toolset supplies named callable operations to an execution. The engine
// treats it as an opaque capability map: actions are resolved by identifier
// at invocation time, never at handler registration time.
type Toolset interface {
	// Action returns the named action, or false when the identifier is
	// unknown.
	Action(name string) (ActionFunc, bool)
}

// FuncToolset is a Toolset backed by a plain map of functions.
type FuncToolset map[string]ActionFunc

// Action implements Toolset.
func (t FuncToolset) Action(name string) (ActionFunc, bool) {
	fn, ok := t[name]
	return fn, ok
}

// ConditionFunc evaluates a rule condition against the accumulated
// intermediate results.
type ConditionFunc func(ctx context.Context, results map[string]any) (bool, error)

// ConditionSet resolves rule condition identifiers to predicates.
type ConditionSet interface {
	// Condition returns the named predicate, or false when the identifier is
	// unknown.
	Condition(name string) (ConditionFunc, bool)
}

// FuncConditionSet is a ConditionSet backed by a plain map of predicates.
type FuncConditionSet map[string]ConditionFunc

// Condition implements ConditionSet.
func (c FuncConditionSet) Condition(name string) (ConditionFunc, bool) {
	fn, ok := c[name]
	return fn, ok
}
