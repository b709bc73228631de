// Package apperrors defines the sentinel error kinds shared by every
// layer of the engine, and the wrapping helpers that attach operation
// context to them.
package apperrors

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors, one per kind in spec.md §7.
var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrRepositoryExists   = errors.New("repository already exists")
	ErrImageNotFound      = errors.New("image not found")
	ErrAmbiguousReference = errors.New("ambiguous image reference")
	ErrTagExists          = errors.New("tag already exists")
	ErrTagNotFound        = errors.New("tag not found")
	ErrUncommittedChanges = errors.New("uncommitted changes")
	ErrCheckedOutImage    = errors.New("image is currently checked out")
	ErrNoOutputSet        = errors.New("no OUTPUT repository set")
	ErrParse              = errors.New("splitfile parse error")
	ErrUnresolvedParam    = errors.New("unresolved splitfile parameter")
	ErrObjectCorruption   = errors.New("object corruption")
	ErrEngine             = errors.New("engine error")
	ErrNetwork            = errors.New("network error")
	ErrCancelled          = errors.New("operation cancelled")
	ErrTimeout            = errors.New("operation timed out")
	ErrNonFastForward      = errors.New("non-fast-forward push")
	ErrForeignSchema       = errors.New("schema is a foreign mount")
	ErrNoImageCheckedOut   = errors.New("no image checked out")
)

// EngineError carries the offending SQL text alongside the underlying
// driver error, per spec.md §4.1 ("any backend error surfaces as a
// single EngineError carrying the SQL text for diagnostics").
type EngineError struct {
	SQL string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error running %q: %v", e.SQL, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}

// NewEngineError wraps a driver error with the SQL text that produced it.
func NewEngineError(sqlText string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{SQL: sqlText, Err: err}
}

// Wrap attaches operation context to err, converting sql.ErrNoRows into
// notFound (the kind-specific sentinel for the caller's domain) rather
// than leaking the driver-level error. Mirrors the teacher's
// wrapDBError(op, err) convention.
func Wrap(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Wrapf is Wrap with a formatted operation description.
func Wrapf(err error, notFound error, format string, args ...any) error {
	return Wrap(fmt.Sprintf(format, args...), err, notFound)
}
