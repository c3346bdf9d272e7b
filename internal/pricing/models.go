package pricing

import "time"

// Pricing models are tenant-scoped (workspace_id required everywhere).
// Amounts are expressed in minor units (e.g., paise, cents) using int64.

// VoiceRate defines per-minute charges for voice-agent call time. The rate
// bundles transcription and synthesis provider cost for one conversation
// minute.
type VoiceRate struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Language selects language-specific rates ("en", "hi"). Empty matches
	// any language and acts as the workspace default.
	Language string `json:"language,omitempty" db:"language"`

	Currency string `json:"currency" db:"currency"`

	// RatePerMinuteMinor is the price per started minute of conversation.
	RatePerMinuteMinor int64 `json:"rate_per_minute_minor" db:"rate_per_minute_minor"`

	// BillingIncrementSeconds (e.g., 60 for per-minute, 1 for per-second billing).
	BillingIncrementSeconds int `json:"billing_increment_seconds" db:"billing_increment_seconds"`

	// MinimumBillableSeconds enforces a minimum charge duration.
	MinimumBillableSeconds int `json:"minimum_billable_seconds" db:"minimum_billable_seconds"`

	// Effective window for pricing.
	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`

	Status RateStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ModelRate defines per-token charges for language-model generation.
type ModelRate struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Model names the priced model ("llama3"). Empty matches any model and
	// acts as the workspace default.
	Model string `json:"model,omitempty" db:"model"`

	Currency string `json:"currency" db:"currency"`

	// RatePer1KTokensMinor is the price per 1000 tokens, prompt and
	// completion combined. Partial blocks round up.
	RatePer1KTokensMinor int64 `json:"rate_per_1k_tokens_minor" db:"rate_per_1k_tokens_minor"`

	EffectiveFrom time.Time  `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty" db:"effective_to"`

	Status RateStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type RateStatus string

const (
	RateStatusActive   RateStatus = "active"
	RateStatusInactive RateStatus = "inactive"
)
