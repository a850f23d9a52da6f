package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ontoflow/ontoflow/pkg/handlers"
	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

func testLogger(t *testing.T) *telemetry.Logger {
	t.Helper()

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  "error",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	return logger
}

func setupEngine(t *testing.T, opts ...Option) (*handlers.Registry, *Engine) {
	t.Helper()

	registry := handlers.NewRegistry()
	return registry, NewEngine(registry, testLogger(t), opts...)
}

func mustRegister(t *testing.T, registry *handlers.Registry, def *handlers.Definition) {
	t.Helper()

	if err := registry.Register(def); err != nil {
		t.Fatalf("Register %s failed: %v", def.Name, err)
	}
}

func orderHandler() *handlers.Definition {
	return &handlers.Definition{
		Name:        "create_order",
		Description: "Creates an order for a client",
		Extraction: map[string][]string{
			"client_name": {`for\s+([A-Za-z ]+)`},
		},
		Steps: []handlers.Step{
			{Position: 0, Action: "create_order", RequiredParams: []string{"client_name"}},
		},
	}
}

func TestExecuteSucceeds(t *testing.T) {
	registry, engine := setupEngine(t)
	mustRegister(t, registry, orderHandler())

	var gotClient any
	toolset := FuncToolset{
		"create_order": func(_ context.Context, params map[string]any) (any, error) {
			gotClient = params["client_name"]
			return "order-1", nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.Phase != PhaseSucceeded {
		t.Errorf("expected terminal phase %s, got %s", PhaseSucceeded, outcome.Phase)
	}
	if outcome.Payload != "order-1" {
		t.Errorf("expected payload order-1, got %v", outcome.Payload)
	}
	if gotClient != "Jane Doe" {
		t.Errorf("expected extracted client name Jane Doe, got %v", gotClient)
	}
	if outcome.Extracted["client_name"] != "Jane Doe" {
		t.Errorf("unexpected extraction: %+v", outcome.Extracted)
	}
	if outcome.Results["create_order"] != "order-1" {
		t.Errorf("expected result recorded under action id, got %+v", outcome.Results)
	}
	if outcome.ExecutionID == "" {
		t.Error("expected an execution id")
	}
}

func TestExecuteUnknownHandler(t *testing.T) {
	_, engine := setupEngine(t)

	outcome := engine.Execute(context.Background(), "nope", "", nil, FuncToolset{})
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !HasCode(outcome.Err, CodeUnknownHandler) {
		t.Errorf("expected %s, got %v", CodeUnknownHandler, outcome.Err)
	}
}

func TestExecuteMissingParameter(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Steps[0].RequiredParams = []string{"foo"}
	mustRegister(t, registry, def)

	invoked := false
	toolset := FuncToolset{
		"create_order": func(_ context.Context, _ map[string]any) (any, error) {
			invoked = true
			return nil, nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "no match here", nil, toolset)
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !HasCode(outcome.Err, CodeMissingParameter) {
		t.Fatalf("expected %s, got %v", CodeMissingParameter, outcome.Err)
	}
	if outcome.Err.Parameter != "foo" {
		t.Errorf("expected error to name parameter foo, got %q", outcome.Err.Parameter)
	}
	if outcome.Err.Step != 0 {
		t.Errorf("expected error to name step 0, got %d", outcome.Err.Step)
	}
	if invoked {
		t.Error("no step may run when validation fails")
	}
}

func TestExecuteCallerParamsSatisfyValidation(t *testing.T) {
	registry, engine := setupEngine(t)
	mustRegister(t, registry, orderHandler())

	toolset := FuncToolset{
		"create_order": func(_ context.Context, params map[string]any) (any, error) {
			return params["client_name"], nil
		},
	}

	// No extraction match, but the caller supplies the parameter directly.
	outcome := engine.Execute(context.Background(), "create_order", "no match",
		map[string]any{"client_name": "Ada"}, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.Payload != "Ada" {
		t.Errorf("expected caller parameter to flow through, got %v", outcome.Payload)
	}
}

func TestExecuteCallerParamsOverrideExtraction(t *testing.T) {
	registry, engine := setupEngine(t)
	mustRegister(t, registry, orderHandler())

	toolset := FuncToolset{
		"create_order": func(_ context.Context, params map[string]any) (any, error) {
			return params["client_name"], nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe",
		map[string]any{"client_name": "Override"}, toolset)
	if outcome.Payload != "Override" {
		t.Errorf("expected caller parameter to win, got %v", outcome.Payload)
	}
}

func TestExecuteFirstPatternWins(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Extraction["client_name"] = []string{
		`client\s+([A-Za-z ]+?)\s+urgent`,
		`for\s+([A-Za-z ]+)`,
	}
	mustRegister(t, registry, def)

	toolset := FuncToolset{
		"create_order": func(_ context.Context, params map[string]any) (any, error) {
			return params["client_name"], nil
		},
	}

	// Both patterns could match; the first declared one wins.
	outcome := engine.Execute(context.Background(), "create_order",
		"client Jane urgent order for Bob", nil, toolset)
	if outcome.Payload != "Jane" {
		t.Errorf("expected first pattern to win, got %v", outcome.Payload)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	registry, engine := setupEngine(t)
	mustRegister(t, registry, orderHandler())

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil, FuncToolset{})
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !HasCode(outcome.Err, CodeUnknownAction) {
		t.Fatalf("expected %s, got %v", CodeUnknownAction, outcome.Err)
	}
	if outcome.Err.Action != "create_order" {
		t.Errorf("expected error to name the action, got %q", outcome.Err.Action)
	}
}

func TestExecuteStepFailureIsFatal(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Steps = []handlers.Step{
		{Position: 0, Action: "first"},
		{Position: 1, Action: "second"},
	}
	mustRegister(t, registry, def)

	secondRan := false
	cause := errors.New("boom")
	toolset := FuncToolset{
		"first": func(_ context.Context, _ map[string]any) (any, error) {
			return nil, cause
		},
		"second": func(_ context.Context, _ map[string]any) (any, error) {
			secondRan = true
			return nil, nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "", nil, toolset)
	if outcome.Success {
		t.Fatal("expected failure")
	}
	if !HasCode(outcome.Err, CodeStepFailed) {
		t.Fatalf("expected %s, got %v", CodeStepFailed, outcome.Err)
	}
	if !errors.Is(outcome.Err, cause) {
		t.Error("expected the underlying error to be wrapped")
	}
	if secondRan {
		t.Error("no later step may run after a fatal step failure")
	}
}

func TestExecuteStepsRunInPositionOrder(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Steps = []handlers.Step{
		{Position: 2, Action: "c"},
		{Position: 0, Action: "a"},
		{Position: 1, Action: "b"},
	}
	mustRegister(t, registry, def)

	var calls []string
	record := func(name string) ActionFunc {
		return func(_ context.Context, _ map[string]any) (any, error) {
			calls = append(calls, name)
			return name, nil
		}
	}
	toolset := FuncToolset{"a": record("a"), "b": record("b"), "c": record("c")}

	outcome := engine.Execute(context.Background(), "create_order", "", nil, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if fmt.Sprint(calls) != "[a b c]" {
		t.Errorf("expected ascending position order, got %v", calls)
	}
	if outcome.Payload != "c" {
		t.Errorf("expected the last step result as payload, got %v", outcome.Payload)
	}
}

func TestExecuteResultsFeedLaterSteps(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Steps = []handlers.Step{
		{Position: 0, Action: "create_order", RequiredParams: []string{"client_name"}},
		{Position: 1, Action: "send_invoice"},
	}
	mustRegister(t, registry, def)

	toolset := FuncToolset{
		"create_order": func(_ context.Context, _ map[string]any) (any, error) {
			return "order-1", nil
		},
		"send_invoice": func(_ context.Context, params map[string]any) (any, error) {
			// The earlier step's result is visible under its action id.
			return fmt.Sprintf("invoice for %v", params["create_order"]), nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if outcome.Payload != "invoice for order-1" {
		t.Errorf("expected earlier result to feed the later step, got %v", outcome.Payload)
	}
}

func TestExecuteRules(t *testing.T) {
	conditions := FuncConditionSet{
		"order_created": func(_ context.Context, results map[string]any) (bool, error) {
			return results["create_order"] != nil, nil
		},
		"never": func(_ context.Context, _ map[string]any) (bool, error) {
			return false, nil
		},
	}
	registry, engine := setupEngine(t, WithConditions(conditions))

	def := orderHandler()
	def.Rules = []handlers.Rule{
		{Condition: "order_created", Action: "notify_sales"},
		{Condition: "never", Action: "escalate"},
	}
	mustRegister(t, registry, def)

	notified := false
	escalated := false
	toolset := FuncToolset{
		"create_order": func(_ context.Context, _ map[string]any) (any, error) {
			return "order-1", nil
		},
		"notify_sales": func(_ context.Context, _ map[string]any) (any, error) {
			notified = true
			return "notified", nil
		},
		"escalate": func(_ context.Context, _ map[string]any) (any, error) {
			escalated = true
			return nil, nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if !notified {
		t.Error("expected the holding rule's action to run")
	}
	if escalated {
		t.Error("a rule whose condition does not hold must not act")
	}
	if outcome.Results["notify_sales"] != "notified" {
		t.Error("expected rule action result to be recorded")
	}
	// The primary payload stays the last step's result, not a rule's.
	if outcome.Payload != "order-1" {
		t.Errorf("expected payload order-1, got %v", outcome.Payload)
	}
}

func TestExecuteRuleFailuresAreAdvisory(t *testing.T) {
	conditions := FuncConditionSet{
		"always": func(_ context.Context, _ map[string]any) (bool, error) {
			return true, nil
		},
		"broken": func(_ context.Context, _ map[string]any) (bool, error) {
			return false, errors.New("predicate exploded")
		},
	}
	registry, engine := setupEngine(t, WithConditions(conditions))

	def := orderHandler()
	def.Rules = []handlers.Rule{
		{Condition: "always", Action: "failing_action"},
		{Condition: "always", Action: "missing_action"},
		{Condition: "broken", Action: "notify_sales"},
		{Condition: "unregistered", Action: "notify_sales"},
	}
	mustRegister(t, registry, def)

	toolset := FuncToolset{
		"create_order": func(_ context.Context, _ map[string]any) (any, error) {
			return "order-1", nil
		},
		"failing_action": func(_ context.Context, _ map[string]any) (any, error) {
			return nil, errors.New("rule action broke")
		},
		"notify_sales": func(_ context.Context, _ map[string]any) (any, error) {
			return nil, nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil, toolset)
	if !outcome.Success {
		t.Fatalf("rule problems must never fail the run, got %v", outcome.Err)
	}
	if len(outcome.Notes) != 4 {
		t.Fatalf("expected 4 advisory notes, got %d: %+v", len(outcome.Notes), outcome.Notes)
	}
}

func TestExecuteWithoutConditionSet(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Rules = []handlers.Rule{{Condition: "anything", Action: "notify_sales"}}
	mustRegister(t, registry, def)

	toolset := FuncToolset{
		"create_order": func(_ context.Context, _ map[string]any) (any, error) {
			return "order-1", nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}
	if len(outcome.Notes) != 1 {
		t.Errorf("expected a note for the unresolvable condition, got %+v", outcome.Notes)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	registry, engine := setupEngine(t)

	def := orderHandler()
	def.Steps = []handlers.Step{
		{Position: 0, Action: "a"},
		{Position: 1, Action: "b"},
	}
	mustRegister(t, registry, def)

	run := func() ([]string, bool) {
		var calls []string
		record := func(name string) ActionFunc {
			return func(_ context.Context, _ map[string]any) (any, error) {
				calls = append(calls, name)
				return name, nil
			}
		}
		outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe", nil,
			FuncToolset{"a": record("a"), "b": record("b")})
		return calls, outcome.Success
	}

	calls1, ok1 := run()
	calls2, ok2 := run()
	if ok1 != ok2 || fmt.Sprint(calls1) != fmt.Sprint(calls2) {
		t.Errorf("expected identical runs, got %v/%v and %v/%v", calls1, ok1, calls2, ok2)
	}
}

func TestExecuteActionsSeeUndeclaredParams(t *testing.T) {
	registry, engine := setupEngine(t)
	mustRegister(t, registry, orderHandler())

	var got map[string]any
	toolset := FuncToolset{
		"create_order": func(_ context.Context, params map[string]any) (any, error) {
			got = params
			return "order-1", nil
		},
	}

	outcome := engine.Execute(context.Background(), "create_order", "order for Jane Doe",
		map[string]any{"priority": "high"}, toolset)
	if !outcome.Success {
		t.Fatalf("expected success, got %v", outcome.Err)
	}

	// RequiredParams gates execution but does not project the parameter set:
	// the action sees everything that was merged, declared or not.
	if got["client_name"] != "Jane Doe" {
		t.Errorf("expected declared parameter client_name, got %v", got["client_name"])
	}
	if got["priority"] != "high" {
		t.Errorf("expected undeclared caller parameter to be visible, got %v", got["priority"])
	}
}
