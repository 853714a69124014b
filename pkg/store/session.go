package store

import "time"

// Run represents the in-memory state of an active research run. It is what
// the progress consumer updates and the status endpoints read while the
// pipeline is working; completed runs age out of the cache.
type Run struct {
	ID    string `json:"id"` // cost session id, e.g. session_1712345678_a1b2c3d4
	Mode  string `json:"mode"`
	Query string `json:"query"`

	Status string `json:"status"`
	Stage  string `json:"stage"` // last reported loop stage

	// Set on terminal states.
	Result        string `json:"result,omitempty"`
	Clarification string `json:"clarification,omitempty"`
	Error         string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

const (
	StatusRunning    = "RUNNING"
	StatusClarifying = "CLARIFYING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"

	// Loop stages reported through progress events.
	StageScoping        = "SCOPING"
	StageAwaitingModel  = "AWAITING_MODEL"
	StageExecutingTools = "EXECUTING_TOOLS"
	StageCompressing    = "COMPRESSING"
	StageDone           = "DONE"
)

// Terminal reports whether the run has reached a final status.
func (r *Run) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed || r.Status == StatusClarifying
}
