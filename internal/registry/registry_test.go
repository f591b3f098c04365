package registry

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vitebski/schema-memory/pkg/models"
)

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry([]models.EntityDescriptor{
		{Location: "models/person.go", Name: "Person"},
		{Location: "models/order.go", Name: "Order", Fields: []models.FieldDescriptor{{Name: "id", Type: "int64"}}},
	})
	if err != nil {
		t.Fatalf("Expected registry to be created, got error: %v", err)
	}

	if registry.Len() != 2 {
		t.Errorf("Expected 2 entities, got %d", registry.Len())
	}

	expectedLocations := []string{"models/order.go", "models/person.go"}
	if !reflect.DeepEqual(registry.Locations(), expectedLocations) {
		t.Errorf("Expected locations %v, got %v", expectedLocations, registry.Locations())
	}

	if person, ok := registry.Lookup("models/person.go"); !ok || person.Name != "Person" {
		t.Errorf("Expected Person at models/person.go, got %v", person)
	}
	if _, ok := registry.Lookup("models/missing.go"); ok {
		t.Error("Expected unknown location to be absent")
	}

	// Field detail is passed through untouched
	order, ok := registry.Lookup("models/order.go")
	if !ok {
		t.Fatal("Expected models/order.go to be registered")
	}
	if len(order.Fields) != 1 || order.Fields[0].Name != "id" {
		t.Errorf("Expected fields to be preserved, got %v", order.Fields)
	}
}

func TestNewRegistryRejectsSharedLocation(t *testing.T) {
	_, err := NewRegistry([]models.EntityDescriptor{
		{Location: "x.src", Name: "A"},
		{Location: "x.src", Name: "B"},
	})
	if err == nil {
		t.Fatal("Expected an error for two declarations at one location")
	}
	if !errors.Is(err, models.ErrAmbiguousDeclaration) {
		t.Errorf("Expected ErrAmbiguousDeclaration, got %v", err)
	}

	var reconcileErr *models.ReconcileError
	if !errors.As(err, &reconcileErr) {
		t.Fatalf("Expected a ReconcileError, got %T", err)
	}
	if reconcileErr.Location != "x.src" {
		t.Errorf("Expected location x.src, got %s", reconcileErr.Location)
	}
}

func TestNewRegistryEmpty(t *testing.T) {
	registry, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("Expected empty registry, got error: %v", err)
	}
	if registry.Len() != 0 {
		t.Errorf("Expected empty registry, got %d entities", registry.Len())
	}
}

func TestParseForeignKey(t *testing.T) {
	fk, ok := ParseForeignKey("Post", models.FieldDescriptor{Name: "author_id", Type: "int64", Annotation: "fk:User.id"})
	if !ok {
		t.Fatal("Expected annotation to be parsed")
	}
	expected := models.ForeignKey{Entity: "Post", Field: "author_id", ReferencedEntity: "User", ReferencedField: "id"}
	if fk != expected {
		t.Errorf("Expected %+v, got %+v", expected, fk)
	}

	fk, ok = ParseForeignKey("Post", models.FieldDescriptor{Name: "owner", Annotation: "fk:Account"})
	if !ok || fk.ReferencedEntity != "Account" || fk.ReferencedField != "id" {
		t.Errorf("Expected default referenced field id, got %+v", fk)
	}

	for _, annotation := range []string{"", "primary_key", "fk:", "fk:.id", "fk:User."} {
		if _, ok := ParseForeignKey("Post", models.FieldDescriptor{Name: "f", Annotation: annotation}); ok {
			t.Errorf("Expected annotation %q to be rejected", annotation)
		}
	}
}

func TestDependencyOrder(t *testing.T) {
	registry, err := NewRegistry([]models.EntityDescriptor{
		{Location: "users.go", Name: "users"},
		{Location: "posts.go", Name: "posts", Fields: []models.FieldDescriptor{
			{Name: "user_id", Type: "int64", Annotation: "fk:users.id"},
		}},
		{Location: "comments.go", Name: "comments", Fields: []models.FieldDescriptor{
			{Name: "post_id", Type: "int64", Annotation: "fk:posts.id"},
			{Name: "user_id", Type: "int64", Annotation: "fk:users"},
		}},
		{Location: "tags.go", Name: "tags"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ordered, circular := registry.DependencyOrder()

	expected := []string{"tags", "users", "posts", "comments"}
	if !reflect.DeepEqual(ordered, expected) {
		t.Errorf("Expected order %v, got %v", expected, ordered)
	}
	if len(circular) != 0 {
		t.Errorf("Expected no circular entities, got %v", circular)
	}
}

func TestDependencyOrderCircular(t *testing.T) {
	registry, err := NewRegistry([]models.EntityDescriptor{
		{Location: "employees.go", Name: "employees", Fields: []models.FieldDescriptor{
			{Name: "department_id", Annotation: "fk:departments.id"},
		}},
		{Location: "departments.go", Name: "departments", Fields: []models.FieldDescriptor{
			{Name: "manager_id", Annotation: "fk:employees.id"},
		}},
		{Location: "nodes.go", Name: "nodes", Fields: []models.FieldDescriptor{
			{Name: "parent_id", Annotation: "fk:nodes.id"},
			{Name: "owner_id", Annotation: "fk:missing.id"},
		}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ordered, circular := registry.DependencyOrder()

	if !circular["employees"] || !circular["departments"] {
		t.Errorf("Expected employees and departments to be circular, got %v", circular)
	}
	if circular["nodes"] {
		t.Error("Expected a self reference not to count as circular")
	}

	expected := []string{"nodes", "departments", "employees"}
	if !reflect.DeepEqual(ordered, expected) {
		t.Errorf("Expected order %v, got %v", expected, ordered)
	}
}
