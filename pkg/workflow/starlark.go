package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// StarlarkToolset is a Toolset whose actions are Starlark scripts registered
// by name. Scripts see their parameters as a predeclared `params` dict and
// must assign the value they return to a global named `result`. Actions are
// data, so operators can add behaviors at runtime without recompiling.
type StarlarkToolset struct {
	timeout time.Duration

	mu      sync.RWMutex
	scripts map[string]string
}

// NewStarlarkToolset creates an empty Starlark toolset. A zero timeout
// defaults to 30 seconds per action invocation.
func NewStarlarkToolset(timeout time.Duration) *StarlarkToolset {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &StarlarkToolset{
		timeout: timeout,
		scripts: make(map[string]string),
	}
}

// RegisterAction registers or replaces a named Starlark script. The script is
// parsed now so registration fails fast on syntax errors.
func (t *StarlarkToolset) RegisterAction(name, script string) error {
	if name == "" {
		return fmt.Errorf("starlark action name is required")
	}
	if _, _, err := starlark.SourceProgram(name+".star", script, func(string) bool { return true }); err != nil {
		return fmt.Errorf("starlark action %q does not parse: %w", name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts[name] = script
	return nil
}

// Actions returns the registered action names.
func (t *StarlarkToolset) Actions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.scripts))
	for name := range t.scripts {
		names = append(names, name)
	}
	return names
}

// Action implements Toolset.
func (t *StarlarkToolset) Action(name string) (ActionFunc, bool) {
	t.mu.RLock()
	script, ok := t.scripts[name]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}

	return func(ctx context.Context, params map[string]any) (any, error) {
		return t.run(ctx, name, script, params)
	}, true
}

type starlarkReturn struct {
	value any
	err   error
}

// run executes one script with a per-invocation timeout. Starlark has no
// preemption hook, so the evaluation happens in its own goroutine and the
// caller abandons it on timeout.
func (t *StarlarkToolset) run(ctx context.Context, name, script string, params map[string]any) (any, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ch := make(chan starlarkReturn, 1)
	go func() {
		value, err := evalScript(name, script, params)
		ch <- starlarkReturn{value: value, err: err}
	}()

	select {
	case <-runCtx.Done():
		return nil, fmt.Errorf("starlark action %q: %w", name, runCtx.Err())
	case ret := <-ch:
		if ret.err != nil {
			return nil, fmt.Errorf("starlark action %q: %w", name, ret.err)
		}
		return ret.value, nil
	}
}

func evalScript(name, script string, params map[string]any) (any, error) {
	thread := &starlark.Thread{
		Name: "ontoflow/" + name,
		// Scripts are operator-authored data; their prints go nowhere.
		Print: func(*starlark.Thread, string) {},
	}

	dict := starlark.NewDict(len(params))
	for key, val := range params {
		sv, err := toStarlark(val)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if err := dict.SetKey(starlark.String(key), sv); err != nil {
			return nil, err
		}
	}

	predeclared := starlark.StringDict{
		"struct": starlarkstruct.Default,
		"params": dict,
	}

	globals, err := starlark.ExecFile(thread, name+".star", script, predeclared)
	if err != nil {
		return nil, err
	}

	result, ok := globals["result"]
	if !ok {
		return nil, nil
	}
	return fromStarlark(result)
}

// toStarlark converts a Go value to its Starlark representation.
func toStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}
	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// fromStarlark converts a Starlark value back to a plain Go value.
func fromStarlark(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer out of range")
		}
		return i, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case *starlark.List:
		items := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlark(val.Index(i))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings, got %s", item[0].Type())
			}
			value, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			out[string(key)] = value
		}
		return out, nil
	case *starlarkstruct.Struct:
		out := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlark(attr)
			if err != nil {
				return nil, err
			}
			out[name] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type %s", v.Type())
	}
}
