package handlers

import (
	"testing"
)

func orderHandler() *Definition {
	return &Definition{
		Name:        "create_order",
		Description: "Creates an order for a client",
		Extraction: map[string][]string{
			"client_name": {`for\s+([A-Za-z ]+)`},
		},
		Steps: []Step{
			{Position: 0, Action: "create_order", RequiredParams: []string{"client_name"}},
		},
		Rules: []Rule{
			{Condition: "order_created", Action: "notify_sales"},
		},
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(orderHandler()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	def, ok := r.Get("create_order")
	if !ok {
		t.Fatal("expected handler to be retrievable")
	}
	if def.Description != "Creates an order for a client" {
		t.Errorf("unexpected description: %s", def.Description)
	}
	if len(def.CompiledPatterns("client_name")) != 1 {
		t.Error("expected extraction pattern to be compiled")
	}
}

func TestRegisterMissingName(t *testing.T) {
	r := NewRegistry()

	def := orderHandler()
	def.Name = ""
	if err := r.Register(def); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestRegisterNoSteps(t *testing.T) {
	r := NewRegistry()

	def := orderHandler()
	def.Steps = nil
	if err := r.Register(def); err == nil {
		t.Fatal("expected error for handler without steps")
	}
}

func TestRegisterDuplicatePosition(t *testing.T) {
	r := NewRegistry()

	def := orderHandler()
	def.Steps = []Step{
		{Position: 1, Action: "a"},
		{Position: 1, Action: "b"},
	}
	if err := r.Register(def); err == nil {
		t.Fatal("expected error for duplicate step position")
	}
}

func TestRegisterEmptyRequiredParam(t *testing.T) {
	r := NewRegistry()

	def := orderHandler()
	def.Steps[0].RequiredParams = []string{"client_name", ""}
	if err := r.Register(def); err == nil {
		t.Fatal("expected error for empty required parameter name")
	}
}

func TestRegisterBadPattern(t *testing.T) {
	r := NewRegistry()

	def := orderHandler()
	def.Extraction["client_name"] = []string{`for\s+([A-Za-z ]+`}
	if err := r.Register(def); err == nil {
		t.Fatal("expected error for pattern that does not compile")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(orderHandler()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	replacement := orderHandler()
	replacement.Description = "v2"
	replacement.Steps = append(replacement.Steps, Step{Position: 1, Action: "send_invoice"})
	if err := r.Register(replacement); err != nil {
		t.Fatalf("replacement Register failed: %v", err)
	}

	def, _ := r.Get("create_order")
	if def.Description != "v2" || len(def.Steps) != 2 {
		t.Errorf("expected replacement to be atomic and complete, got %+v", def)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 handler after replacement, got %d", r.Len())
	}
}

func TestRegisterRejectedLeavesPriorDefinition(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(orderHandler()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	bad := orderHandler()
	bad.Description = "broken"
	bad.Extraction["client_name"] = []string{`(`}
	if err := r.Register(bad); err == nil {
		t.Fatal("expected Register to fail")
	}

	def, _ := r.Get("create_order")
	if def.Description != "Creates an order for a client" {
		t.Error("expected failed registration to leave the prior definition intact")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(orderHandler()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	def, _ := r.Get("create_order")
	def.Steps[0].Action = "mutated"
	def.Extraction["client_name"][0] = "mutated"

	again, _ := r.Get("create_order")
	if again.Steps[0].Action != "create_order" {
		t.Error("mutating a returned definition leaked into the registry")
	}
	if again.Extraction["client_name"][0] != `for\s+([A-Za-z ]+)` {
		t.Error("mutating returned extraction patterns leaked into the registry")
	}
}

func TestListOrder(t *testing.T) {
	r := NewRegistry()

	names := []string{"create_order", "close_account", "send_invoice"}
	for _, name := range names {
		def := orderHandler()
		def.Name = name
		if err := r.Register(def); err != nil {
			t.Fatalf("Register %s failed: %v", name, err)
		}
	}

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 handlers, got %d", len(list))
	}
	for i, want := range names {
		if list[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].Name)
		}
	}
}

func TestOrderedSteps(t *testing.T) {
	def := &Definition{
		Name: "multi",
		Steps: []Step{
			{Position: 2, Action: "c"},
			{Position: 0, Action: "a"},
			{Position: 1, Action: "b"},
		},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	steps := def.OrderedSteps()
	for i, want := range []string{"a", "b", "c"} {
		if steps[i].Action != want {
			t.Errorf("position %d: expected %s, got %s", i, want, steps[i].Action)
		}
	}
}
