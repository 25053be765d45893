package domain

import "time"

// RunState is the terminal or in-progress state of one pipeline run.
type RunState string

const (
	RunStateFetching     RunState = "fetching"
	RunStateStoring      RunState = "storing"
	RunStateCharting     RunState = "charting"
	RunStatePublishing   RunState = "publishing"
	RunStateDone         RunState = "done"
	RunStateSkippedEmpty RunState = "skipped_empty"
	RunStateFailed       RunState = "failed"
)

// Terminal reports whether the state is one a finished run can end in.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateDone, RunStateSkippedEmpty, RunStateFailed:
		return true
	}
	return false
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	State        RunState  `json:"state"`
	RecordCount  int       `json:"record_count"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Error        string    `json:"error,omitempty"`
}
