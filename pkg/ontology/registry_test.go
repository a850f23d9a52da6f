package ontology

import (
	"errors"
	"sync"
	"testing"
)

func clientClass() []PropertyDefinition {
	return []PropertyDefinition{
		{Name: "name", Type: TypeString, Label: "Client name"},
		{Name: "age", Type: TypeInteger},
		{Name: "balance", Type: TypeFloat},
		{Name: "active", Type: TypeBoolean},
	}
}

func TestDefineClass(t *testing.T) {
	r := NewRegistry()

	class, err := r.DefineClass("Client", clientClass())
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	if class.Name != "Client" {
		t.Errorf("expected name Client, got %s", class.Name)
	}
	if len(class.Properties) != 4 {
		t.Errorf("expected 4 properties, got %d", len(class.Properties))
	}

	// Label defaults to the property name when omitted.
	prop, ok := class.Property("age")
	if !ok {
		t.Fatal("expected property age to be declared")
	}
	if prop.Label != "age" {
		t.Errorf("expected default label age, got %s", prop.Label)
	}
}

func TestDefineClassEmptyName(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefineClass("", clientClass()); err == nil {
		t.Fatal("expected error for empty class name")
	}
}

func TestDefineClassInvalidPropertyType(t *testing.T) {
	r := NewRegistry()

	_, err := r.DefineClass("Client", []PropertyDefinition{
		{Name: "name", Type: "text"},
	})
	if err == nil {
		t.Fatal("expected error for unknown property type")
	}
	if !IsSchemaError(err) {
		t.Errorf("expected schema error, got %v", err)
	}
}

func TestDefineClassReferenceRequiresTarget(t *testing.T) {
	r := NewRegistry()

	_, err := r.DefineClass("Order", []PropertyDefinition{
		{Name: "client", Type: TypeReference},
	})
	if err == nil {
		t.Fatal("expected error for reference property without target class")
	}
}

func TestDefineClassLateBoundReference(t *testing.T) {
	r := NewRegistry()

	// The referenced class does not exist yet; that is allowed.
	_, err := r.DefineClass("Order", []PropertyDefinition{
		{Name: "client", Type: TypeReference, RefClass: "Client"},
	})
	if err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
}

func TestDefineClassMerge(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefineClass("Client", clientClass()); err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}

	// Redefining with an overlap merges only the new properties.
	merged, err := r.DefineClass("Client", []PropertyDefinition{
		{Name: "name", Type: TypeString},
		{Name: "email", Type: TypeString},
	})
	if err != nil {
		t.Fatalf("redefinition failed: %v", err)
	}
	if len(merged.Properties) != 5 {
		t.Errorf("expected 5 properties after merge, got %d", len(merged.Properties))
	}
	if _, ok := merged.Property("email"); !ok {
		t.Error("expected merged class to declare email")
	}
}

func TestDefineClassIdempotent(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefineClass("Client", clientClass()); err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	class, err := r.DefineClass("Client", clientClass())
	if err != nil {
		t.Fatalf("idempotent redefinition failed: %v", err)
	}
	if len(class.Properties) != 4 {
		t.Errorf("expected 4 properties, got %d", len(class.Properties))
	}
}

func TestDefineClassTypeConflict(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefineClass("Client", clientClass()); err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}

	_, err := r.DefineClass("Client", []PropertyDefinition{
		{Name: "age", Type: TypeString},
		{Name: "email", Type: TypeString},
	})
	if err == nil {
		t.Fatal("expected type conflict error")
	}
	if !HasCode(err, CodeTypeConflict) {
		t.Errorf("expected code %s, got %v", CodeTypeConflict, err)
	}

	// A failed redefinition leaves the class unchanged.
	class, _ := r.GetClass("Client")
	if len(class.Properties) != 4 {
		t.Errorf("expected class unchanged with 4 properties, got %d", len(class.Properties))
	}
	if _, ok := class.Property("email"); ok {
		t.Error("expected email not to be added after failed redefinition")
	}
}

func TestDefineClassIntraSetConflict(t *testing.T) {
	r := NewRegistry()

	_, err := r.DefineClass("Client", []PropertyDefinition{
		{Name: "age", Type: TypeInteger},
		{Name: "age", Type: TypeString},
	})
	if err == nil {
		t.Fatal("expected error for conflicting duplicate in one definition")
	}
}

func TestGetClassUnknown(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.GetClass("Nope"); ok {
		t.Error("expected GetClass to miss for undefined class")
	}
}

func TestGetClassReturnsCopy(t *testing.T) {
	r := NewRegistry()

	if _, err := r.DefineClass("Client", clientClass()); err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}

	class, _ := r.GetClass("Client")
	class.Properties[0].Type = TypeBoolean

	again, _ := r.GetClass("Client")
	if again.Properties[0].Type != TypeString {
		t.Error("mutating a returned definition leaked into the registry")
	}
}

func TestListClassesOrder(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"Client", "Product", "Order"} {
		if _, err := r.DefineClass(name, clientClass()); err != nil {
			t.Fatalf("DefineClass %s failed: %v", name, err)
		}
	}

	classes := r.ListClasses()
	if len(classes) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(classes))
	}
	for i, want := range []string{"Client", "Product", "Order"} {
		if classes[i].Name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, classes[i].Name)
		}
	}
}

func TestDefineClassConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := r.DefineClass("Client", clientClass()); err != nil {
					t.Errorf("DefineClass failed: %v", err)
					return
				}
				if class, ok := r.GetClass("Client"); ok && len(class.Properties) != 4 {
					t.Errorf("observed partial class with %d properties", len(class.Properties))
					return
				}
			}
		}()
	}
	wg.Wait()

	if r.Len() != 1 {
		t.Errorf("expected 1 class, got %d", r.Len())
	}
}

func TestErrorMatching(t *testing.T) {
	err := NewValidationError(CodeTypeMismatch, "boom").WithClass("Client").WithProperty("age")

	if !errors.Is(err, &Error{Kind: ErrorKindValidation}) {
		t.Error("expected kind-only match via errors.Is")
	}
	if !errors.Is(err, &Error{Kind: ErrorKindValidation, Code: CodeTypeMismatch}) {
		t.Error("expected kind+code match via errors.Is")
	}
	if errors.Is(err, &Error{Kind: ErrorKindSchema}) {
		t.Error("did not expect schema kind to match")
	}
	if !IsValidationError(err) {
		t.Error("expected IsValidationError")
	}
}
