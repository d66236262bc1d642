package domain

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound indicates that an operation referenced a task id absent
// from the store.
var ErrTaskNotFound = errors.New("task not found")

// ValidationError rejects malformed input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreUnavailableError wraps a persistence or evidence store failure. The
// operation is reported to the caller and no local state is mutated.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }
