package core

import (
	"errors"
	"fmt"

	"github.com/kilupskalvis/doctrack/internal/models"
)

// Sentinel errors. Typed errors below unwrap to one of these.
var (
	ErrEntityExists      = errors.New("entity already exists")
	ErrAlreadyDeleted    = errors.New("entity already queued for deletion")
	ErrTypeConflict      = errors.New("type conflict")
	ErrLockContention    = errors.New("failed to acquire all required locks")
	ErrAlreadySubmitting = errors.New("already submitting changes")
	ErrPartialWrite      = errors.New("submit incomplete")
	ErrUnknownDifference = errors.New("unknown difference type")
	ErrIncompatibleValue = errors.New("incompatible value")
)

// StateConflictError is an illegal tracker transition
type StateConflictError struct {
	Op         string // "insert" or "delete"
	DocumentID string
	State      models.EntityState
	Err        error
}

func (e *StateConflictError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("%s on submit: %v (state %s)", e.Op, e.Err, e.State)
	}
	return fmt.Sprintf("%s on submit %s: %v (state %s)", e.Op, e.DocumentID, e.Err, e.State)
}

func (e *StateConflictError) Unwrap() error { return e.Err }

// TypeConflictError is raised when a field changes kind between snapshots
type TypeConflictError struct {
	Path    models.FieldPath
	OldKind models.Kind
	NewKind models.Kind
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("value for field %s used to be of type %s, trying to set as type %s", e.Path, e.OldKind, e.NewKind)
}

func (e *TypeConflictError) Unwrap() error { return ErrTypeConflict }

// LockContentionError names the first lock that was held by someone else
type LockContentionError struct {
	Request models.LockRequest
	HeldBy  string
}

func (e *LockContentionError) Error() string {
	return fmt.Sprintf("%v: %s.%s is held by %s", ErrLockContention, e.Request.DocumentID, e.Request.Field, e.HeldBy)
}

func (e *LockContentionError) Unwrap() error { return ErrLockContention }

// PartialWriteError reports a write group that was not fully acknowledged.
// Groups applied before it stay applied.
type PartialWriteError struct {
	Collection     string
	Type           models.OperationType
	ExecutionOrder int
	Requested      int
	Processed      int
	Err            error
}

func (e *PartialWriteError) Error() string {
	msg := fmt.Sprintf("%v: %s %s group %d processed %d of %d operations",
		ErrPartialWrite, e.Collection, e.Type, e.ExecutionOrder, e.Processed, e.Requested)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialWriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPartialWrite}
	}
	return []error{ErrPartialWrite, e.Err}
}
