package cli

import (
	"errors"
	"fmt"
)

// Exit codes returned by the commands.
const (
	// ExitFailure covers fatal run errors, invalid input and scan findings.
	ExitFailure = 1

	// ExitInterrupted is returned when the run is stopped by SIGINT or SIGTERM.
	ExitInterrupted = 130
)

// ExitError represents a command failure with a specific exit code.
//
// Cobra RunE functions return it instead of calling os.Exit directly, so
// commands stay testable. [RunWithConfig] extracts the code with
// [IsExitError] and [Execute] performs the actual exit.
type ExitError struct {
	// Code is the exit code to return to the shell.
	Code int
}

// Error returns "exit status N", matching os/exec's wording.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError creates an [ExitError] with the given exit code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError reports whether err is or wraps an [ExitError] and returns its
// code. Returns (0, false) for nil and for any other error.
func IsExitError(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
