package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/loadorder/internal/status"
)

// errNotLoaded is returned by operations that need a loaded engine.
var errNotLoaded = status.Errorf(status.InvalidArgs, "load order has not been loaded")

// RollbackError is returned when persisting a candidate failed and
// reverting the store failed too. The on-disk state may then match neither.
//
// Unwrap returns the original persistence error, so status.CodeOf reports
// its code.
type RollbackError struct {
	// Operation is the engine operation that failed.
	Operation string

	// Err is the persistence error that triggered the rollback.
	Err error

	// RollbackErr is the error from reverting the store.
	RollbackErr error
}

// Error implements the error interface.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("%s: %v (rollback failed: %v)", e.Operation, e.Err, e.RollbackErr)
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

// IsRollbackError returns true if a failed operation could not restore the
// previous on-disk state.
// Uses errors.As to handle wrapped errors.
func IsRollbackError(err error) bool {
	var re *RollbackError
	return errors.As(err, &re)
}
