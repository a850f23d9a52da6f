package config

import (
	"os"
	"path/filepath"
	"testing"
)

const orderHandlerYAML = `
name: create_order
description: creates an order for a named client
extraction:
  client_name:
    - 'for\s+([A-Za-z ]+)'
steps:
  - position: 0
    action: create_order
    required_params: [client_name]
rules:
  - condition: order_created
    action: notify_sales
`

func TestParseHandlerDefinition(t *testing.T) {
	def, err := ParseHandlerDefinition([]byte(orderHandlerYAML))
	if err != nil {
		t.Fatalf("ParseHandlerDefinition: %v", err)
	}
	if def.Name != "create_order" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Steps) != 1 || def.Steps[0].RequiredParams[0] != "client_name" {
		t.Errorf("steps = %+v", def.Steps)
	}
	// Validate ran, so the extraction patterns are compiled.
	if len(def.CompiledPatterns("client_name")) != 1 {
		t.Error("extraction patterns were not compiled")
	}
}

func TestParseHandlerDefinitionRejectsInvalid(t *testing.T) {
	// No steps.
	if _, err := ParseHandlerDefinition([]byte("name: broken\n")); err == nil {
		t.Error("accepted a handler with no steps")
	}
	// Broken pattern.
	bad := `
name: broken
extraction:
  slot: ['(']
steps:
  - position: 0
    action: noop
`
	if _, err := ParseHandlerDefinition([]byte(bad)); err == nil {
		t.Error("accepted a handler with a broken extraction pattern")
	}
}

func TestLoadHandlerDefinitions(t *testing.T) {
	dir := t.TempDir()
	second := `
name: send_invoice
steps:
  - position: 0
    action: send_invoice
`
	if err := os.WriteFile(filepath.Join(dir, "b_invoice.yaml"), []byte(second), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a_order.yaml"), []byte(orderHandlerYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	defs, err := LoadHandlerDefinitions(dir)
	if err != nil {
		t.Fatalf("LoadHandlerDefinitions: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("handler count = %d, want 2", len(defs))
	}
	// Lexical file order.
	if defs[0].Name != "create_order" || defs[1].Name != "send_invoice" {
		t.Errorf("order = %s, %s", defs[0].Name, defs[1].Name)
	}
}

func TestLoadHandlerDefinitionsFailsOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHandlerDefinitions(dir); err == nil {
		t.Fatal("a broken file did not fail the load")
	}
}
