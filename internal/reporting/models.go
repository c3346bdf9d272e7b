package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CallsSummaryRequest requests aggregated call metrics.
// Workspace isolation: WorkspaceID is required.
type CallsSummaryRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	Range       TimeRange `json:"range"`
	AgentID     string    `json:"agent_id,omitempty"`
}

type CallsSummary struct {
	WorkspaceID string `json:"workspace_id"`
	AgentID     string `json:"agent_id,omitempty"`

	TotalCalls      int `json:"total_calls"`
	CompletedCalls  int `json:"completed_calls"`
	FailedCalls     int `json:"failed_calls"`
	CancelledCalls  int `json:"cancelled_calls"`
	InProgressCalls int `json:"in_progress_calls"`
	QueuedCalls     int `json:"queued_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	// DegradedTurns counts turns that completed with a degradation
	// (text-only reply, missing knowledge context). Omitted when the
	// summary is filtered to a single agent.
	DegradedTurns int `json:"degraded_turns"`

	TotalCostMinor int64  `json:"total_cost_minor"`
	Currency       string `json:"currency"`
}
