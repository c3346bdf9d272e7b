package calls

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("call not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidTransition = errors.New("invalid call status transition")

	// ErrCallNotActive rejects turns (and in-progress marks) against calls
	// already in a terminal state.
	ErrCallNotActive = errors.New("call not active")
)

// CallRepository is the persistence contract for call records.
//
// Tenancy invariant: workspace_id is required and enforced in all queries.
type CallRepository interface {
	Create(ctx context.Context, c VoiceAgentCall) error
	FindByID(ctx context.Context, workspaceID, callID string) (VoiceAgentCall, error)

	// SetStatus performs a compare-and-set transition. It fails with
	// ErrInvalidTransition when the stored status is not `from`.
	SetStatus(ctx context.Context, workspaceID, callID string, from, to CallStatus) error

	// SetLanguageUsed records the detected conversation language.
	SetLanguageUsed(ctx context.Context, workspaceID, callID, language string) error

	// Finalize stamps the terminal status, figures and ended_at. Repeated
	// finalization overwrites the figures; it never duplicates rows.
	Finalize(ctx context.Context, workspaceID, callID string, status CallStatus, durationSeconds int, costMinor int64, currency, endReason string, endedAt time.Time) (VoiceAgentCall, error)

	// ListByWorkspace returns calls started within [from, to) for reporting.
	ListByWorkspace(ctx context.Context, workspaceID string, from, to time.Time) ([]VoiceAgentCall, error)
}

// TranscriptRepository is the persistence contract for dialogue rows.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
// AppendTurn is atomic: either every entry of the turn lands or none does,
// so a half-written exchange can never corrupt the model-facing history.
type TranscriptRepository interface {
	AppendTurn(ctx context.Context, entries ...TranscriptEntry) error
	ListByCall(ctx context.Context, workspaceID, callID string) ([]TranscriptEntry, error)
}

// CostRepository is the persistence contract for the per-call cost ledger.
//
// Append is idempotent on (call_id, idempotency_key): replaying a turn's cost
// posting returns the stored entry with inserted=false.
type CostRepository interface {
	Append(ctx context.Context, e CostEntry) (stored CostEntry, inserted bool, err error)
	TotalsByCall(ctx context.Context, workspaceID, callID string) (CostTotals, error)
}
