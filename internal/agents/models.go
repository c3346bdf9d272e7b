package agents

import "time"

// VoiceAgent is the tenant-configured persona that answers calls.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
//
// The orchestrator treats this record as read-only: agents are created and
// edited by tenant configuration flows, and a call snapshots the fields it
// needs (language, system prompt, knowledge base ids) at initiation time.
type VoiceAgent struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	// Language is a BCP-47-ish tag used as the STT hint and TTS default ("en", "hi").
	Language string `json:"language" db:"language"`

	// VoiceID and VoiceTone select the synthesis voice.
	VoiceID   string `json:"voice_id,omitempty" db:"voice_id"`
	VoiceTone string `json:"voice_tone,omitempty" db:"voice_tone"`

	// SystemPrompt carries the persona instructions fed to the language model.
	SystemPrompt string `json:"system_prompt" db:"system_prompt"`

	// Greeting is spoken when the call connects. Empty means a default is
	// derived from the agent name.
	Greeting string `json:"greeting,omitempty" db:"greeting"`

	// KnowledgeBaseIDs lists the retrieval corpora this agent may consult.
	// Empty means the knowledge stage is skipped entirely.
	KnowledgeBaseIDs []string `json:"knowledge_base_ids,omitempty" db:"knowledge_base_ids"`

	Compliance ComplianceConfig `json:"compliance" db:"compliance"`

	Status AgentStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ComplianceConfig is the closed set of pre-call regulatory checks.
// Named, typed options only; new checks get a new field, not a map key.
type ComplianceConfig struct {
	CheckDND bool `json:"check_dnd"`
}

type AgentStatus string

const (
	AgentStatusActive   AgentStatus = "active"
	AgentStatusInactive AgentStatus = "inactive"
)
