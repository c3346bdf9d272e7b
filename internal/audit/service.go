package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal operational events: compliance blocks, degraded
// pipeline stages, call terminations.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers treat audit logging as best-effort; a failed append never fails a turn.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		// Audit is optional wiring; treat missing repo as disabled.
		return nil
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogComplianceBlocked records a call attempt rejected by the compliance gate.
func (s *Service) LogComplianceBlocked(ctx context.Context, workspaceID, agentID, reason string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeComplianceBlocked,
		AgentID:     agentID,
		Message:     reason,
	})
}

// LogTurnDegraded records a non-fatal pipeline degradation (empty STT,
// retrieval failure, text-only synthesis).
func (s *Service) LogTurnDegraded(ctx context.Context, workspaceID, callID, stage, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeTurnDegraded,
		CallID:      callID,
		Stage:       stage,
		Message:     message,
	})
}

// LogGenerationFailed records a turn aborted by language-model failure.
func (s *Service) LogGenerationFailed(ctx context.Context, workspaceID, callID, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeGenerationFailed,
		CallID:      callID,
		Stage:       "generation",
		Message:     message,
	})
}

// LogCallEnded records a finalized call with its terminal status.
func (s *Service) LogCallEnded(ctx context.Context, workspaceID, callID, status, metadata string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeCallEnded,
		CallID:      callID,
		Message:     status,
		Metadata:    metadata,
	})
}
