package models

import (
	"fmt"
	"time"
)

// WorkItem is one (name, value) fan-out unit. A single-shot run uses one
// implicit work item with both fields absent. Work items are derived once
// per orchestration call and are immutable for its duration.
type WorkItem struct {
	// Name identifies the item for template addressing. Unique per item.
	Name string `json:"name,omitempty"`
	// Value is the item's payload, nil for single-shot runs.
	Value any `json:"value,omitempty"`
}

// Empty returns true for the implicit single-shot work item.
func (w WorkItem) Empty() bool {
	return w.Name == "" && w.Value == nil
}

// SessionOutcome is the structured result of one child-session run. It is
// created by the session runner and never mutated afterwards.
type SessionOutcome struct {
	// SessionID is the child session's identifier, empty if creation failed.
	SessionID string `json:"session_id,omitempty"`
	// Success reports whether the session completed its task.
	Success bool `json:"success"`
	// Result is the session's opaque result payload.
	Result any `json:"result,omitempty"`
	// Error holds the failure message for unsuccessful outcomes.
	Error string `json:"error,omitempty"`
	// StartTime is when the run began.
	StartTime time.Time `json:"start_time"`
	// EndTime is when the run finished.
	EndTime time.Time `json:"end_time"`
}

// OrchestrationResult is the aggregate outcome of one orchestration call.
// It is assembled once, at the end, and returned; it is never observed
// while still being built.
type OrchestrationResult struct {
	// Strategy is the result strategy the call ran under.
	Strategy ResultStrategy `json:"strategy"`
	// TotalSessions equals the number of work items passed in, always.
	TotalSessions int `json:"total_sessions"`
	// Results holds the per-item outcomes in input order. Its length never
	// exceeds TotalSessions; FirstResultWins may return fewer.
	Results []SessionOutcome `json:"results"`
	// Success is the overall flag: false whenever any outcome failed.
	Success bool `json:"success"`
	// ErrorMessage summarizes partial or total failure, empty on success.
	ErrorMessage string `json:"error_message,omitempty"`
	// StartTime is when orchestration began.
	StartTime time.Time `json:"start_time"`
	// EndTime is when orchestration finished.
	EndTime time.Time `json:"end_time"`
}

// Duration returns the elapsed orchestration time.
func (r *OrchestrationResult) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// SuccessCount returns the number of successful outcomes.
func (r *OrchestrationResult) SuccessCount() int {
	n := 0
	for _, o := range r.Results {
		if o.Success {
			n++
		}
	}
	return n
}

// CompletionSummary returns the canonical "k/n sessions completed
// successfully" message used when not every session succeeded. The wording
// is stable; callers and tests match on it.
func CompletionSummary(successes, total int) string {
	return fmt.Sprintf("%d/%d sessions completed successfully", successes, total)
}
