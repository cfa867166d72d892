// Package errors provides the structured error taxonomy for convoy runs.
// Every failure that can terminate a run carries a machine-readable code so
// the orchestrator can map it to a terminal outcome.
package errors
