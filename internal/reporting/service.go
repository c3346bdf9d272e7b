package reporting

import (
	"context"
	"errors"
	"time"

	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// IMPORTANT:
// - Methods must enforce workspace filtering.
// - Implementations should query immutable sources when possible (cost
//   ledger, call records).
type Repository interface {
	ListByWorkspace(ctx context.Context, workspaceID string, from, to time.Time) ([]calls.VoiceAgentCall, error)
}

// DegradationCounter reads degraded-turn counts from the audit trail.
// Optional: a nil counter reports zero degraded turns.
type DegradationCounter interface {
	CountByType(ctx context.Context, workspaceID string, t audit.EventType, from, to time.Time) (int, error)
}

type Service struct {
	repo         Repository
	degradations DegradationCounter
}

func NewService(repo Repository, degradations DegradationCounter) *Service {
	return &Service{repo: repo, degradations: degradations}
}

// CallsSummary aggregates one workspace's calls over a time range. Cost
// figures come from the finalized call records; in-flight calls contribute
// counts but no cost.
func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.WorkspaceID == "" {
		return CallsSummary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListByWorkspace(ctx, req.WorkspaceID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{WorkspaceID: req.WorkspaceID, AgentID: req.AgentID}
	for _, c := range rows {
		if req.AgentID != "" && c.AgentID != req.AgentID {
			continue
		}
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.Status.IsTerminal() {
			out.TotalCostMinor += c.CostMinor
			if out.Currency == "" {
				out.Currency = c.Currency
			}
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		case calls.CallStatusCancelled:
			out.CancelledCalls++
		case calls.CallStatusInProgress:
			out.InProgressCalls++
		case calls.CallStatusQueued:
			out.QueuedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}

	// Degraded-turn count is workspace-wide; per-agent filtering would need
	// the agent id on the audit row, which degradation events do not carry.
	if s.degradations != nil && req.AgentID == "" {
		n, err := s.degradations.CountByType(ctx, req.WorkspaceID, audit.EventTypeTurnDegraded, req.Range.From, req.Range.To)
		if err != nil {
			return CallsSummary{}, err
		}
		out.DegradedTurns = n
	}
	return out, nil
}
