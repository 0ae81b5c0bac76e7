// Package store implements the Entity Store (C1): transactional CRUD
// for projects, features, tasks, sections, and dependencies, with
// optimistic-locked updates and the scoped queries C3/C4/C5/C6 need.
// Grounded on the teacher's internal/repository package (per-entity
// repository structs holding a *DB, context-first methods,
// rowsAffected-based not-found detection), generalized from the
// teacher's int64 autoincrement ids and flat status enums to uuid.UUID
// ids and the config-driven status domain.
package store

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates the five store-error variants spec §4.1
// defines. Go renders the spec's `Success(T) | Error(ErrorKind,
// message)` sum type as the language's native (T, error) return with a
// typed *Error a caller inspects via errors.As — the same mechanism the
// teacher uses for sql.ErrNoRows, just closed over a richer enum.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindVersionConflict
	KindValidationError
	KindDatabaseError
	KindConflictError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindVersionConflict:
		return "VersionConflict"
	case KindValidationError:
		return "ValidationError"
	case KindDatabaseError:
		return "DatabaseError"
	case KindConflictError:
		return "ConflictError"
	default:
		return "Unknown"
	}
}

// Error is the store's closed error type. Message is human-readable;
// Err, when set, is the wrapped cause (a driver error, a validation
// error) and is reachable via errors.Unwrap.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func versionConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindVersionConflict, Message: fmt.Sprintf(format, args...)}
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidationError, Message: "validation failed", Err: err}
}

func databaseError(err error) *Error {
	return &Error{Kind: KindDatabaseError, Message: "database operation failed", Err: err}
}

func conflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflictError, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err (or a cause it wraps) is a NotFound
// store error.
func IsNotFound(err error) bool { return kindIs(err, KindNotFound) }

// IsVersionConflict reports whether err is a VersionConflict store error.
func IsVersionConflict(err error) bool { return kindIs(err, KindVersionConflict) }

func kindIs(err error, kind ErrorKind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
