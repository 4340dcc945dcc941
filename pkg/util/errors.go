// Package util provides the shared logger and the driver's error taxonomy.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers classify failures with errors.Is against these;
// the typed errors below carry the per-failure context.
var (
	// ErrConnection: a session could not be established within the retry budget.
	ErrConnection = errors.New("cannot establish session")

	// ErrAuthentication: credentials rejected. Never retried.
	ErrAuthentication = errors.New("authentication rejected")

	// ErrOperation: a single structured or CLI operation rejected by the device.
	ErrOperation = errors.New("operation rejected by device")

	// ErrConvergenceTimeout: the post-apply action did not reach the expected
	// state within the convergence window.
	ErrConvergenceTimeout = errors.New("post-apply convergence timed out")

	// ErrVerificationTimeout: a verification probe never matched within its window.
	ErrVerificationTimeout = errors.New("verification probe timed out")

	// ErrUnreachable: the device stopped responding mid-sequence.
	ErrUnreachable = errors.New("device stopped responding")
)

// ConnectionError reports a failed session establishment, including how many
// attempts were made before giving up.
type ConnectionError struct {
	Host     string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s failed after %d attempts: %v", e.Host, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return ErrConnection
}

// OperationError reports a single rejected configuration operation. Index is
// the zero-based position within the bundle; Output is the raw device
// response, so the operator can distinguish a syntax problem from a timing
// problem.
type OperationError struct {
	Index  int
	Op     string
	Output string
	Err    error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("operation %d (%s) rejected", e.Index, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Output != "" {
		msg += fmt.Sprintf(" (device response: %q)", e.Output)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return ErrOperation
}

// UnreachableError reports a transport-level failure partway through a
// command sequence.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("%s stopped responding: %v", e.Host, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return ErrUnreachable
}
