package model

import "time"

// Stage names emitted on the progress stream, in orchestration order.
const (
	StageValidating  = "validating"
	StageAnalyzing   = "analyzing"
	StageScoring     = "scoring_disposal"
	StageFanningOut  = "fanning_out"
	StageIntegrating = "integrating"
	StageDone        = "done"
)

// Event statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProgressEvent is one update on the processing stream. The terminal event
// has Final set and carries the full AggregateReport.
type ProgressEvent struct {
	RunID     string           `json:"run_id"`
	Stage     string           `json:"stage"`
	Status    string           `json:"status"`
	Payload   any              `json:"payload,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Final     bool             `json:"final,omitempty"`
	Report    *AggregateReport `json:"report,omitempty"`
}
