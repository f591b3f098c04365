package models

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of a reconciliation run
type ErrorKind string

const (
	AmbiguousDeclaration   ErrorKind = "AMBIGUOUS_DECLARATION"
	CatalogBootstrapFailed ErrorKind = "CATALOG_BOOTSTRAP_FAILED"
	CatalogReadFailed      ErrorKind = "CATALOG_READ_FAILED"
	CatalogRowDecodeFailed ErrorKind = "CATALOG_ROW_DECODE_FAILED"
)

// Sentinel errors, one per kind, for use with errors.Is
var (
	ErrAmbiguousDeclaration   = errors.New("ambiguous declaration")
	ErrCatalogBootstrapFailed = errors.New("catalog bootstrap failed")
	ErrCatalogReadFailed      = errors.New("catalog read failed")
	ErrCatalogRowDecodeFailed = errors.New("catalog row decode failed")
)

var sentinels = map[ErrorKind]error{
	AmbiguousDeclaration:   ErrAmbiguousDeclaration,
	CatalogBootstrapFailed: ErrCatalogBootstrapFailed,
	CatalogReadFailed:      ErrCatalogReadFailed,
	CatalogRowDecodeFailed: ErrCatalogRowDecodeFailed,
}

// ReconcileError is returned for every fatal condition of a reconciliation run.
//
// Location is set for AmbiguousDeclaration, Field and Row for CatalogRowDecodeFailed.
// Err holds the underlying executor error, if any.
type ReconcileError struct {
	Kind     ErrorKind
	Message  string
	Location string
	Field    string
	Row      int
	Err      error
}

// Error implements the error interface
func (e *ReconcileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Location != "" {
		msg += fmt.Sprintf(" (location=%s)", e.Location)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" (row=%d, field=%s)", e.Row, e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying executor error
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind
func (e *ReconcileError) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// ErrAmbiguous reports two declarations sharing one location
func ErrAmbiguous(location, first, second string) error {
	return &ReconcileError{
		Kind:     AmbiguousDeclaration,
		Message:  fmt.Sprintf("entities %s and %s are declared at the same location", first, second),
		Location: location,
	}
}

// ErrBootstrap reports that the catalog table could not be confirmed
func ErrBootstrap(table string, err error) error {
	return &ReconcileError{
		Kind:    CatalogBootstrapFailed,
		Message: fmt.Sprintf("could not create or confirm table %s", table),
		Err:     err,
	}
}

// ErrRead reports that the catalog rows could not be fetched
func ErrRead(table string, err error) error {
	return &ReconcileError{
		Kind:    CatalogReadFailed,
		Message: fmt.Sprintf("could not read table %s", table),
		Err:     err,
	}
}

// ErrDecode reports a catalog row whose column could not be decoded
func ErrDecode(row int, field string, err error) error {
	return &ReconcileError{
		Kind:    CatalogRowDecodeFailed,
		Message: "could not decode catalog row",
		Field:   field,
		Row:     row,
		Err:     err,
	}
}
