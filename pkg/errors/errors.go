package errors

import (
	"fmt"
)

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrAlreadyExists      = fmt.Errorf("already exists")
	ErrNoSuchExecution    = fmt.Errorf("no such execution")
	ErrOptimisticLock     = fmt.Errorf("optimistic lock conflict")
	ErrInvariantViolation = fmt.Errorf("invariant violation")
	ErrAlreadyRunning     = fmt.Errorf("already running")
	ErrTransfer           = fmt.Errorf("transfer failed")
	ErrDigestMismatch     = fmt.Errorf("digest mismatch")
	ErrInvalidState       = fmt.Errorf("invalid state")
	ErrInvalidArg         = fmt.Errorf("invalid arg")
	ErrNotSupported       = fmt.Errorf("not supported")
)

// OptimisticLockError is returned when an update carried a version that no
// longer matches the stored record. Callers should reload and retry.
type OptimisticLockError struct {
	ID       int64
	Expected int32
	Actual   int32
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("%v: execution %d expected version %d, stored version is %d", ErrOptimisticLock, e.ID, e.Expected, e.Actual)
}

// Is allows errors.Is(err, ErrOptimisticLock)
func (e *OptimisticLockError) Is(target error) bool {
	return target == ErrOptimisticLock
}
