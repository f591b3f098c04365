package models

import "strings"

// FieldDescriptor represents a single field of a declared entity
type FieldDescriptor struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Annotation string `yaml:"annotation,omitempty"`
}

// EntityDescriptor represents an entity declaration discovered in the current run
type EntityDescriptor struct {
	Location string            `yaml:"location"`
	Name     string            `yaml:"name"`
	Fields   []FieldDescriptor `yaml:"fields,omitempty"`
}

// ForeignKey represents a relation declared through a field annotation
type ForeignKey struct {
	Entity           string
	Field            string
	ReferencedEntity string
	ReferencedField  string
}

// CatalogRow represents a single persisted row of the catalog table
type CatalogRow struct {
	ID       int64
	Location string
	Name     string
}

// CatalogEntry is a location/name pair waiting to be inserted into the catalog
type CatalogEntry struct {
	Location string
	Name     string
}

// RenameMap maps a lowercased new entity name to its lowercased old name
type RenameMap map[string]string

// Record stores a rename, lowercasing both sides
func (rm RenameMap) Record(newName, oldName string) {
	rm[strings.ToLower(newName)] = strings.ToLower(oldName)
}

// OldName returns the previous name of a renamed entity
func (rm RenameMap) OldName(newName string) (string, bool) {
	old, ok := rm[strings.ToLower(newName)]
	return old, ok
}

// StatementKind represents the kind of a pending catalog statement
type StatementKind int

const (
	InsertStatement StatementKind = iota
	UpdateStatement
	DeleteStatement
)

// String returns the SQL verb of the statement kind
func (k StatementKind) String() string {
	switch k {
	case InsertStatement:
		return "INSERT"
	case UpdateStatement:
		return "UPDATE"
	case DeleteStatement:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// PendingStatement represents a catalog mutation waiting for execution.
// Rows is set for inserts; ID, Location and Name for updates; ID and Name for deletes.
type PendingStatement struct {
	Kind     StatementKind
	Rows     []CatalogEntry
	ID       int64
	Location string
	Name     string
}

// ReconciliationResult represents the outcome of diffing a registry against the catalog
type ReconciliationResult struct {
	Inserts []CatalogEntry
	Updates []CatalogRow
	Deletes []CatalogRow
	Renames RenameMap
}

// IsEmpty reports whether the catalog is already in sync
func (r ReconciliationResult) IsEmpty() bool {
	return len(r.Inserts) == 0 && len(r.Updates) == 0 && len(r.Deletes) == 0
}
