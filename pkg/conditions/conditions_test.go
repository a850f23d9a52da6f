package conditions

import (
	"context"
	"testing"

	"github.com/ontoflow/ontoflow/pkg/telemetry"
)

func setupConditionSet(t *testing.T) *RegoConditionSet {
	t.Helper()

	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  "error",
		Format: "json",
		Output: "stderr",
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	cs, err := NewRegoConditionSet(logger)
	if err != nil {
		t.Fatalf("NewRegoConditionSet failed: %v", err)
	}
	return cs
}

func mustEval(t *testing.T, cs *RegoConditionSet, name string, results map[string]any) bool {
	t.Helper()

	cond, ok := cs.Condition(name)
	if !ok {
		t.Fatalf("condition %s not registered", name)
	}
	holds, err := cond(context.Background(), results)
	if err != nil {
		t.Fatalf("condition %s failed: %v", name, err)
	}
	return holds
}

func TestBuiltinConditions(t *testing.T) {
	cs := setupConditionSet(t)

	if !mustEval(t, cs, "always", nil) {
		t.Error("always must hold")
	}
	if mustEval(t, cs, "never", nil) {
		t.Error("never must not hold")
	}
	if mustEval(t, cs, "has_results", map[string]any{}) {
		t.Error("has_results must not hold for empty results")
	}
	if !mustEval(t, cs, "has_results", map[string]any{"create_order": "order-1"}) {
		t.Error("has_results must hold when a step produced a result")
	}
}

func TestRegisterCondition(t *testing.T) {
	cs := setupConditionSet(t)

	source := `package ontoflow.conditions.order_created

import rego.v1

default allow := false

allow if {
	input.results.create_order
}
`
	if err := cs.Register("order_created", source); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if mustEval(t, cs, "order_created", map[string]any{}) {
		t.Error("condition must not hold without the result")
	}
	if !mustEval(t, cs, "order_created", map[string]any{"create_order": "order-1"}) {
		t.Error("condition must hold when the result is present")
	}
}

func TestRegisterRejectsBadModules(t *testing.T) {
	cs := setupConditionSet(t)

	if err := cs.Register("", "package p\nallow := true"); err == nil {
		t.Error("expected error for empty name")
	}
	if err := cs.Register("nopkg", "allow := true"); err == nil {
		t.Error("expected error for module without package")
	}
	if err := cs.Register("syntax", "package p\nallow :="); err == nil {
		t.Error("expected error for module that does not compile")
	}
}

func TestUnknownCondition(t *testing.T) {
	cs := setupConditionSet(t)

	if _, ok := cs.Condition("ghost"); ok {
		t.Error("expected unknown condition to miss")
	}
}

func TestRegisterReplaces(t *testing.T) {
	cs := setupConditionSet(t)

	hold := `package ontoflow.conditions.flip

import rego.v1

allow := true
`
	drop := `package ontoflow.conditions.flip

import rego.v1

allow := false
`
	if err := cs.Register("flip", hold); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !mustEval(t, cs, "flip", nil) {
		t.Fatal("expected initial condition to hold")
	}

	if err := cs.Register("flip", drop); err != nil {
		t.Fatalf("replacement Register failed: %v", err)
	}
	if mustEval(t, cs, "flip", nil) {
		t.Error("expected replacement to take effect")
	}
}

func TestConditionThreadsThroughResults(t *testing.T) {
	cs := setupConditionSet(t)

	source := `package ontoflow.conditions.big_order

import rego.v1

default allow := false

allow if {
	input.results.create_order.total > 100
}
`
	if err := cs.Register("big_order", source); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	small := map[string]any{"create_order": map[string]any{"total": 50}}
	large := map[string]any{"create_order": map[string]any{"total": 150}}
	if mustEval(t, cs, "big_order", small) {
		t.Error("condition must not hold for a small order")
	}
	if !mustEval(t, cs, "big_order", large) {
		t.Error("condition must hold for a large order")
	}
}
