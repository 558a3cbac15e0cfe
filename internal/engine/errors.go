package engine

import (
	"errors"
	"fmt"
)

// ErrPolicyFault is wrapped by every error the search policy returns. The
// policy only fails when the driver hands it an impossible context.
var ErrPolicyFault = errors.New("search policy fault")

// InternalError represents a fault in the exploration machinery itself, as
// opposed to a fault in the target program.
//
// Internal errors include:
//   - Registry misuse: double Start, registration after Stop
//   - Spawn failure: the target could not create its root process
//   - Policy fault: the policy was invoked with an impossible context
//   - Driver fault: replay divergence or another driver invariant broke
//
// An internal error aborts the whole session. It is never retried and never
// turned into a ticket.
type InternalError struct {
	// Code identifies the error category.
	Code InternalErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the schedule being explored when the error occurred.
	Path string

	// Err is the underlying cause.
	Err error
}

// InternalErrorCode categorizes internal errors.
type InternalErrorCode string

const (
	// ErrCodeRegistry indicates the identity registry was misused.
	ErrCodeRegistry InternalErrorCode = "REGISTRY_MISUSE"

	// ErrCodeSpawn indicates the target failed to spawn its root process.
	ErrCodeSpawn InternalErrorCode = "SPAWN_FAILED"

	// ErrCodePolicy indicates the search policy was invoked incorrectly.
	ErrCodePolicy InternalErrorCode = "POLICY_FAULT"

	// ErrCodeDriver indicates the driver broke one of its invariants.
	ErrCodeDriver InternalErrorCode = "DRIVER_FAULT"
)

// Error implements the error interface.
func (e *InternalError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsInternalError returns true if err is or wraps an InternalError.
func IsInternalError(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// newInternalError builds an InternalError of the given code.
func newInternalError(code InternalErrorCode, path, message string, err error) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
		Path:    path,
		Err:     err,
	}
}

// classifyRunError wraps an error returned by Execution.Run. Policy faults
// keep their own code; everything else is a driver fault.
func classifyRunError(path string, err error) *InternalError {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie
	}
	if errors.Is(err, ErrPolicyFault) {
		return newInternalError(ErrCodePolicy, path, "search policy failed", err)
	}
	return newInternalError(ErrCodeDriver, path, "execution failed", err)
}
