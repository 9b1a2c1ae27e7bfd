// Package conditions implements the condition store: a per-column,
// operation-grouped collection of predicate conditions with evaluation,
// serialization, and change notification.
package conditions

import (
	"errors"
	"fmt"
)

// Error codes for the condition store
const (
	ErrCodeOperationConflict = "OPERATION_CONFLICT"
	ErrCodeUnknownOperation  = "UNKNOWN_OPERATION"
)

// ErrStoreDestroyed is returned when a destroyed store is mutated.
var ErrStoreDestroyed = errors.New("condition store has been destroyed")

// OperationConflictError is returned when a condition is added to a column
// whose recorded operation differs from the requested one. Mixing operations
// on one column is disallowed because the combinator semantics (AND vs OR
// short-circuit policy) would become ambiguous.
type OperationConflictError struct {
	// Column is the column identifier the add was attempted on
	Column string
	// Recorded is the operation already recorded for the column
	Recorded Operation
	// Requested is the conflicting operation passed to AddCondition
	Requested Operation
}

func (e *OperationConflictError) Error() string {
	return fmt.Sprintf("column %q already uses operation %q; cannot add condition with operation %q",
		e.Column, e.Recorded, e.Requested)
}

// UnknownOperationError is returned when the first condition for a column
// names an operation the operation lookup service does not recognize.
type UnknownOperationError struct {
	// Operation is the unrecognized operation identifier
	Operation Operation
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Operation)
}

// IsOperationConflict reports whether err is an OperationConflictError.
func IsOperationConflict(err error) bool {
	var conflictErr *OperationConflictError
	return errors.As(err, &conflictErr)
}

// IsUnknownOperation reports whether err is an UnknownOperationError.
func IsUnknownOperation(err error) bool {
	var unknownErr *UnknownOperationError
	return errors.As(err, &unknownErr)
}
