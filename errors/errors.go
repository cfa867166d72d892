package errors

import (
	stderrors "errors"
	"fmt"
)

// RunError is the unified error type for run-terminating failures.
type RunError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *RunError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *RunError) WithCause(cause error) *RunError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *RunError) WithDetail(key string, value any) *RunError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new RunError with automatic retryable detection.
func New(code ErrorCode, message string) *RunError {
	return &RunError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// CodeOf extracts the error code from err, or ErrCodeInternal if err is not
// a RunError.
func CodeOf(err error) ErrorCode {
	var re *RunError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var re *RunError
	return stderrors.As(err, &re) && re.Code == code
}

// --- Common Error Constructors ---

// ResolutionFailed creates an error for a trigger relationship that could not
// be mapped to a downstream unit of work.
func ResolutionFailed(bridge, reason string) *RunError {
	return &RunError{
		Code: ErrCodeResolutionFailed, Message: fmt.Sprintf("cannot resolve trigger %q: %s", bridge, reason),
		Retryable: false,
		Details:   map[string]any{"bridge": bridge},
	}
}

// ArtifactNotFound creates an error for a downstream run with no matching
// job that produced artifacts.
func ArtifactNotFound(pattern string, unitID, runID int64) *RunError {
	return &RunError{
		Code: ErrCodeArtifactNotFound, Message: fmt.Sprintf("no job matching %q with artifacts in unit %d run %d", pattern, unitID, runID),
		Retryable: false,
		Details:   map[string]any{"pattern": pattern, "unit_id": unitID, "run_id": runID},
	}
}

// SlotCollision creates an error for a namespaced slot that already exists.
func SlotCollision(slot string) *RunError {
	return &RunError{
		Code: ErrCodeSlotCollision, Message: fmt.Sprintf("slot %q already exists in the canonical tree", slot),
		Retryable: false,
		Details:   map[string]any{"slot": slot},
	}
}

// ContractViolation creates an error for an artifact set missing a declared
// output or the mandatory metadata file.
func ContractViolation(node, missing string) *RunError {
	return &RunError{
		Code: ErrCodeContractViolation, Message: fmt.Sprintf("node %q artifact set is missing %q", node, missing),
		Retryable: false,
		Details:   map[string]any{"node": node, "missing": missing},
	}
}

// TransportFailed creates an error for a remote call that failed after retry
// exhaustion.
func TransportFailed(operation string, cause error) *RunError {
	return &RunError{
		Code: ErrCodeTransportFailed, Message: fmt.Sprintf("remote call %s failed", operation),
		Retryable: true,
		Details:   map[string]any{"operation": operation}, Cause: cause,
	}
}

// PublishFailed creates an error for a bundle upload that failed terminally.
func PublishFailed(pkg string, cause error) *RunError {
	return &RunError{
		Code: ErrCodePublishFailed, Message: fmt.Sprintf("bundle upload to package %q failed", pkg),
		Retryable: false,
		Details:   map[string]any{"package": pkg}, Cause: cause,
	}
}

// InvalidRun creates an error for a malformed run context.
func InvalidRun(reason string) *RunError {
	return &RunError{
		Code: ErrCodeInvalidRun, Message: reason,
		Retryable: false,
	}
}

// Internal creates an error for an unexpected orchestrator-side failure.
func Internal(cause error) *RunError {
	return &RunError{
		Code: ErrCodeInternal, Message: "unexpected orchestrator failure",
		Retryable: false, Cause: cause,
	}
}
