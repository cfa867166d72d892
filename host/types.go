package host

// Bridge is a trigger relationship from the current run to a downstream
// unit of work it spawned.
type Bridge struct {
	Name             string `json:"name"`
	DownstreamUnitID int64  `json:"downstream_unit_id"`
	DownstreamRunID  int64  `json:"downstream_run_id"`
}

// Job is one executed job inside a downstream run.
type Job struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	HasArtifacts bool   `json:"has_artifacts"`
}

// UnitHandle identifies a started unit of work and the run it executes in.
type UnitHandle struct {
	UnitID int64 `json:"unit_id"`
	RunID  int64 `json:"run_id"`
}

// UnitStatus is the completion status a unit of work reports.
type UnitStatus string

const (
	StatusPending  UnitStatus = "pending"
	StatusRunning  UnitStatus = "running"
	StatusSuccess  UnitStatus = "success"
	StatusFailed   UnitStatus = "failed"
	StatusCanceled UnitStatus = "canceled"
)

// Terminal reports whether the status is a final state.
func (s UnitStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// unitState is the status payload the host returns for a running unit.
type unitState struct {
	Status UnitStatus `json:"status"`
}

// startUnitRequest is the payload for starting a unit of work.
type startUnitRequest struct {
	Name      string            `json:"name"`
	Ref       string            `json:"ref"`
	Variables map[string]string `json:"variables,omitempty"`
}
