// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import "fmt"

// Process exit codes.
const (
	// ExitUnresolved signals unresolved resources or failed stages.
	ExitUnresolved = 1
	// ExitAuthFailure signals that no authentication strategy produced a
	// working session.
	ExitAuthFailure = 2
)

// ExitCodeError carries a process exit code alongside its cause. main
// unwraps it to pick the exit status.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

func exitErr(code int, err error) error {
	return &ExitCodeError{Code: code, Err: err}
}
