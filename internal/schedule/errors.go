package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by every operation on a scheduler that
	// was never created or has been torn down.
	ErrNotInitialized = errors.New("schedule: scheduler not initialized")

	// ErrOutOfMemory is returned when no record can be allocated for a new
	// registration.
	ErrOutOfMemory = errors.New("schedule: out of records")

	// ErrInvalidRequest is returned for a nil task, a task without a
	// function, an uncomparable argument or a malformed Request.
	ErrInvalidRequest = errors.New("schedule: invalid request")
)

// RegistrationError reports that a reschedule could not issue a new timer
// request. The identity is no longer scheduled; callers that still want it
// must schedule it again.
type RegistrationError struct {
	Task string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("schedule: registration for task %s dropped: %v", e.Task, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

var _ error = (*RegistrationError)(nil)
