package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Resolution and location errors: fatal to the run, surfaced immediately.
const (
	// ErrCodeResolutionFailed indicates a trigger relationship could not be
	// resolved to a downstream unit of work.
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	// ErrCodeArtifactNotFound indicates no completed job with artifacts
	// matched the locator pattern.
	ErrCodeArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"
)

// Gathering errors: fatal to the owning gatherer, which fails the run.
const (
	// ErrCodeSlotCollision indicates a namespaced slot already exists.
	// Never auto-resolved; the existing slot is left untouched.
	ErrCodeSlotCollision ErrorCode = "SLOT_COLLISION"
	// ErrCodeContractViolation indicates a node's artifact set is missing a
	// declared output or the mandatory metadata file.
	ErrCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"
)

// Remote interaction errors.
const (
	// ErrCodeTransportFailed indicates a remote call failed after retry
	// exhaustion.
	ErrCodeTransportFailed ErrorCode = "TRANSPORT_FAILED"
	// ErrCodePublishFailed indicates the bundle upload failed. Always a
	// hard, terminal failure regardless of the gate verdict.
	ErrCodePublishFailed ErrorCode = "PUBLISH_FAILED"
)

// Internal errors.
const (
	// ErrCodeInvalidRun indicates the run context itself is malformed.
	ErrCodeInvalidRun ErrorCode = "INVALID_RUN"
	// ErrCodeInternal indicates an unexpected orchestrator-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTransportFailed: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
