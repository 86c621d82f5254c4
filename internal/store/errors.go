package store

import (
	"errors"
	"fmt"
)

// Constraint violation kinds.
var (
	ErrDuplicate  = errors.New("duplicate key")
	ErrForeignKey = errors.New("foreign key violation")
	ErrCheck      = errors.New("check constraint violation")
)

// ConstraintError is a write rejected by a store constraint. It matches its
// Kind with errors.Is.
type ConstraintError struct {
	Kind       error  // ErrDuplicate, ErrForeignKey or ErrCheck
	Constraint string // Constraint or column name when the driver reports one
	Err        error  // Driver error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%v (%s): %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// Is reports whether target is the violation kind.
func (e *ConstraintError) Is(target error) bool { return target == e.Kind }

// SavepointError is a failure of a savepoint control statement. The batch
// transaction cannot be trusted afterwards.
type SavepointError struct {
	Op   string // "create", "rollback" or "release"
	Name string
	Err  error
}

func (e *SavepointError) Error() string {
	return fmt.Sprintf("%s savepoint %s: %v", e.Op, e.Name, e.Err)
}

func (e *SavepointError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is any constraint violation.
func IsConstraint(err error) bool {
	var ce *ConstraintError
	return errors.As(err, &ce)
}
