/*
errors.go - Centralized error types for the lifecycle engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Handlers map these onto HTTP statuses; the store wraps driver failures
  in DatabaseError so storage detail never reaches a caller.

ERROR CATEGORIES:
  1. Validation errors - Missing/malformed date, time, hours or reason
  2. Lifecycle errors - Operation not legal in the record's current state
  3. Store errors - Persistence failures and lost compare-and-swap races

USAGE:
  if errors.Is(err, generic.ErrAlreadyApproved) {
      // show "already approved" to the administrator
  }

SEE ALSO:
  - record.go: Produces TransitionError
  - store.go: Produces ErrConcurrentModification
  - api/handlers.go: Maps errors to HTTP statuses
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed input or a missing reject reason.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when an operation is not allowed in the
	// record's lifecycle state, or the actor does not own the record.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyApproved guards approve/reject against approved records.
	ErrAlreadyApproved = errors.New("already approved")

	// ErrAlreadyRejected guards approve/reject against rejected records.
	ErrAlreadyRejected = errors.New("already rejected")

	// ErrDatabase is returned when the persistence layer fails.
	ErrDatabase = errors.New("database error")

	// ErrConcurrentModification is returned when a conditional update finds
	// the record no longer in the expected state.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrUnknownKind is returned when a payload names an unregistered kind.
	ErrUnknownKind = errors.New("unknown record kind")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError reports an operation that the record's state forbids.
type TransitionError struct {
	RecordID RecordID
	Op       string
	From     State
	cause    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s record %s in state %s: %v", e.Op, e.RecordID, e.From, e.cause)
}

func (e *TransitionError) Unwrap() error { return e.cause }

func newTransitionError(r *Record, op string, cause error) *TransitionError {
	return &TransitionError{RecordID: r.ID, Op: op, From: r.State, cause: cause}
}

// DatabaseError wraps a storage failure. Error() deliberately omits the
// driver message; use Unwrap/Cause for logging.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string { return "database error during " + e.Op }

func (e *DatabaseError) Unwrap() []error { return []error{ErrDatabase, e.Err} }

// Cause returns the underlying driver error for logs.
func (e *DatabaseError) Cause() error { return e.Err }

func NewDatabaseError(op string, err error) *DatabaseError {
	return &DatabaseError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input
// or a lifecycle rule.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrAlreadyApproved) ||
		errors.Is(err, ErrAlreadyRejected) ||
		errors.Is(err, ErrUnknownKind)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
