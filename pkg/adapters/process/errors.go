package process

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrSupervisor is matched by every *SupervisorError.
	ErrSupervisor = errors.New("process supervisor error")

	// ErrTerminationFailed is matched by every *TerminationFailedError.
	ErrTerminationFailed = errors.New("process termination failed")

	// ErrStartupTimeout is returned when the readiness marker does not show up
	// within the configured startup timeout.
	ErrStartupTimeout = errors.New("process startup timed out")

	// ErrExitedBeforeReady is returned when a spawned process exits while its
	// readiness is still being polled.
	ErrExitedBeforeReady = errors.New("process exited before becoming ready")

	// ErrHandleTerminated is returned when a handle is used after Terminate.
	ErrHandleTerminated = errors.New("process handle already terminated")
)

// SupervisorError wraps an OS-level failure while starting, polling or
// signaling a process. It is fatal and never retried.
type SupervisorError struct {
	Op  string
	PID int
	Err error
}

func (e *SupervisorError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("supervisor %s (pid %d): %v", e.Op, e.PID, e.Err)
	}
	return fmt.Sprintf("supervisor %s: %v", e.Op, e.Err)
}

func (e *SupervisorError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSupervisor) hold.
func (e *SupervisorError) Is(target error) bool {
	return target == ErrSupervisor
}

// TerminationFailedError names the processes still alive after both the
// graceful and the forceful phase.
type TerminationFailedError struct {
	PID       int
	Survivors []int
}

func (e *TerminationFailedError) Error() string {
	survivors := slices.Clone(e.Survivors)
	slices.Sort(survivors)
	if e.PID == 0 {
		return fmt.Sprintf("%s: processes %v still alive", ErrTerminationFailed, survivors)
	}
	return fmt.Sprintf("%s: process tree of pid %d still has live processes %v", ErrTerminationFailed, e.PID, survivors)
}

// Is makes errors.Is(err, ErrTerminationFailed) hold.
func (e *TerminationFailedError) Is(target error) bool {
	return target == ErrTerminationFailed
}
