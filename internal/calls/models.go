package calls

import "time"

// VoiceAgentCall represents one phone call driven by a voice agent.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
//
// Lifecycle invariants:
// - Status transitions are monotonic: queued -> in_progress -> terminal.
//   A call never re-enters queued.
// - DurationSeconds and CostMinor are finalized exactly once, at End.
//   A repeated End overwrites the figures (callers own at-most-once in
//   practice); it never duplicates transcript or cost-ledger state.
type VoiceAgentCall struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	AgentID     string `json:"agent_id" db:"agent_id"`

	// Customer contact data captured at initiation.
	CustomerPhone string `json:"customer_phone" db:"customer_phone"`
	CustomerName  string `json:"customer_name,omitempty" db:"customer_name"`

	// Agent snapshot taken at initiation; the call does not observe later
	// agent edits.
	Language         string   `json:"language" db:"language"`
	SystemPrompt     string   `json:"system_prompt" db:"system_prompt"`
	KnowledgeBaseIDs []string `json:"knowledge_base_ids,omitempty" db:"knowledge_base_ids"`

	Status CallStatus `json:"status" db:"status"`

	// LanguageUsed is the language the conversation actually ran in, as
	// detected by transcription. Starts equal to Language.
	LanguageUsed string `json:"language_used,omitempty" db:"language_used"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is the accumulated call duration in seconds.
	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`

	// CostMinor is the accumulated provider cost in minor currency units.
	CostMinor int64  `json:"cost_minor" db:"cost_minor"`
	Currency  string `json:"currency" db:"currency"`

	// EndReason is a short machine-readable cause ("customer_hangup",
	// "agent_error", ...). Optional.
	EndReason string `json:"end_reason,omitempty" db:"end_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusCancelled  CallStatus = "cancelled"
)

// IsTerminal reports whether the status accepts no further turns.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo enforces the monotonic state machine.
func (s CallStatus) CanTransitionTo(next CallStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case CallStatusQueued:
		return next == CallStatusInProgress || next.IsTerminal()
	case CallStatusInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerCustomer Speaker = "customer"
	SpeakerAgent    Speaker = "agent"
)

// TranscriptEntry is one durable dialogue row.
//
// Transcript invariants:
// - Append-only: entries are never updated or deleted by the orchestrator.
// - Strictly ordered per call by TurnNumber then insertion; the ordered rows
//   are the literal history fed back to the language model.
type TranscriptEntry struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	CallID      string `json:"call_id" db:"call_id"`

	// TurnNumber groups the customer utterance and the agent reply of one
	// exchange. 0 is reserved for the greeting.
	TurnNumber int `json:"turn_number" db:"turn_number"`

	Speaker Speaker `json:"speaker" db:"speaker"`
	Text    string  `json:"text" db:"text"`

	// AudioRef optionally points at the audio artifact for this entry.
	AudioRef string `json:"audio_ref,omitempty" db:"audio_ref"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CostEntry is an immutable append-only cost-ledger row.
// Each row records one turn's provider spend for one call.
//
// Money invariant: call cost totals are derived from these entries; nothing
// mutates a running total without appending a row.
type CostEntry struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	CallID      string `json:"call_id" db:"call_id"`

	// IdempotencyKey makes turn-cost posting safe to retry.
	// Convention: "turn-<n>" / "greeting".
	IdempotencyKey string `json:"idempotency_key" db:"idempotency_key"`

	// AmountMinor is the turn's provider cost in minor units (always >= 0).
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	// ElapsedSeconds is the wall-clock time this turn consumed.
	ElapsedSeconds int `json:"elapsed_seconds" db:"elapsed_seconds"`

	// Breakdown is optional JSON detailing per-provider figures.
	Breakdown string `json:"breakdown,omitempty" db:"breakdown"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CostTotals is the queryable running accumulation for one call.
type CostTotals struct {
	CallID string `json:"call_id"`

	TotalMinor     int64  `json:"total_minor"`
	Currency       string `json:"currency"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	Entries        int    `json:"entries"`
}
