package agent

import (
	"errors"
	"fmt"

	"agentflow/internal/status"
)

// Sentinel errors for failed invocations. Use [errors.Is] to test for them.
var (
	// ErrTimeout means the child produced no output for longer than the
	// idle timeout.
	ErrTimeout = errors.New("role timed out")

	// ErrLoopDetected means the child's progress notes started repeating.
	ErrLoopDetected = errors.New("loop detected")

	// ErrChildProcess means the child could not be started, its output could
	// not be read, or it exited non-zero without producing output.
	ErrChildProcess = errors.New("child process failed")
)

// InvocationError is returned by [Supervisor.Execute] for a failed role
// invocation. It wraps one of the sentinel errors.
type InvocationError struct {
	Role status.Role
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Role, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func invocationError(role status.Role, format string, args ...any) error {
	return &InvocationError{Role: role, Err: fmt.Errorf(format, args...)}
}
