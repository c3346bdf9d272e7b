package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - workspace_id is required for tenancy isolation.
// - Audit capture is best-effort; the call path never blocks on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: partition by time for retention.
type Event struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// Target identifiers (optional, depending on the event type).
	AgentID string `json:"agent_id,omitempty" db:"agent_id"`
	CallID  string `json:"call_id,omitempty" db:"call_id"`

	// Stage names the pipeline stage for degradation events
	// (transcription, retrieval, generation, synthesis).
	Stage string `json:"stage,omitempty" db:"stage"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeComplianceBlocked    EventType = "compliance_blocked"
	EventTypeVerifierUnavailable  EventType = "verifier_unavailable"
	EventTypeTurnDegraded         EventType = "turn_degraded"
	EventTypeGenerationFailed     EventType = "generation_failed"
	EventTypeCallEnded            EventType = "call_ended"
)
