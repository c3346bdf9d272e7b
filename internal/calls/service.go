package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voiceagent-platform/internal/agents"
	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/compliance"
)

// ComplianceBlockedError reports a compliance gate rejection. The Reason is
// safe to show to tenant users.
type ComplianceBlockedError struct {
	Reason string
}

func (e *ComplianceBlockedError) Error() string {
	return "call blocked by compliance: " + e.Reason
}

// ComplianceGate is the pre-dial verdict the service consults before creating
// any call record.
type ComplianceGate interface {
	Check(ctx context.Context, cfg agents.ComplianceConfig, phoneNumber string) (compliance.Decision, error)
}

// Service owns the call lifecycle: initiation (with the compliance gate),
// the in-progress transition and finalization.
//
// Turn processing itself lives in the orchestrator package; this service is
// the durable state machine around it.
type Service struct {
	agents      agents.Repository
	gate        ComplianceGate
	calls       CallRepository
	transcripts TranscriptRepository
	costs       CostRepository
	audit       *audit.Service

	currency string
	clock    func() time.Time
}

func NewService(agentRepo agents.Repository, gate ComplianceGate, callRepo CallRepository, transcriptRepo TranscriptRepository, costRepo CostRepository, auditSvc *audit.Service, currency string) *Service {
	if currency == "" {
		currency = "USD"
	}
	return &Service{
		agents:      agentRepo,
		gate:        gate,
		calls:       callRepo,
		transcripts: transcriptRepo,
		costs:       costRepo,
		audit:       auditSvc,
		currency:    currency,
		clock:       time.Now,
	}
}

// Customer is the contact the call is placed to.
type Customer struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Name        string `json:"name,omitempty"`
}

type InitiateRequest struct {
	AgentID  string   `json:"agent_id" binding:"required"`
	Customer Customer `json:"customer" binding:"required"`
}

// Initiate validates the agent, runs the compliance gate and creates the call
// in queued state.
//
// Ordering invariant: the gate runs BEFORE any call record exists. A blocked
// attempt leaves no call row behind; only an audit event records it.
func (s *Service) Initiate(ctx context.Context, workspaceID string, req InitiateRequest) (VoiceAgentCall, error) {
	if workspaceID == "" {
		return VoiceAgentCall{}, fmt.Errorf("%w: workspace id required", ErrInvalidArgument)
	}
	if req.AgentID == "" {
		return VoiceAgentCall{}, fmt.Errorf("%w: agent id required", ErrInvalidArgument)
	}
	phone := strings.TrimSpace(req.Customer.PhoneNumber)
	if phone == "" {
		return VoiceAgentCall{}, fmt.Errorf("%w: customer phone number required", ErrInvalidArgument)
	}

	agent, err := s.agents.FindByID(ctx, workspaceID, req.AgentID)
	if err != nil {
		return VoiceAgentCall{}, err
	}
	if agent.Status != agents.AgentStatusActive {
		// Inactive agents are indistinguishable from missing ones to callers.
		return VoiceAgentCall{}, agents.ErrNotFound
	}

	decision, err := s.gate.Check(ctx, agent.Compliance, phone)
	if err != nil {
		return VoiceAgentCall{}, err
	}
	if decision.Blocked {
		_ = s.audit.LogComplianceBlocked(ctx, workspaceID, agent.ID, decision.Reason)
		return VoiceAgentCall{}, &ComplianceBlockedError{Reason: decision.Reason}
	}

	now := s.clock().UTC()
	call := VoiceAgentCall{
		ID:            uuid.NewString(),
		WorkspaceID:   workspaceID,
		AgentID:       agent.ID,
		CustomerPhone: phone,
		CustomerName:  strings.TrimSpace(req.Customer.Name),

		Language:         agent.Language,
		SystemPrompt:     agent.SystemPrompt,
		KnowledgeBaseIDs: agent.KnowledgeBaseIDs,

		Status:       CallStatusQueued,
		LanguageUsed: agent.Language,

		StartedAt: now,
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return VoiceAgentCall{}, err
	}
	return call, nil
}

// Get returns one call scoped to the workspace.
func (s *Service) Get(ctx context.Context, workspaceID, callID string) (VoiceAgentCall, error) {
	return s.calls.FindByID(ctx, workspaceID, callID)
}

// Transcript returns the ordered dialogue rows for one call.
func (s *Service) Transcript(ctx context.Context, workspaceID, callID string) ([]TranscriptEntry, error) {
	if _, err := s.calls.FindByID(ctx, workspaceID, callID); err != nil {
		return nil, err
	}
	return s.transcripts.ListByCall(ctx, workspaceID, callID)
}

// MarkInProgress transitions queued -> in_progress. It is invoked when the
// first turn (or the greeting) arrives. Calls already in progress pass
// through; terminal calls are rejected.
func (s *Service) MarkInProgress(ctx context.Context, workspaceID, callID string) (VoiceAgentCall, error) {
	call, err := s.calls.FindByID(ctx, workspaceID, callID)
	if err != nil {
		return VoiceAgentCall{}, err
	}
	switch {
	case call.Status == CallStatusInProgress:
		return call, nil
	case call.Status.IsTerminal():
		return VoiceAgentCall{}, ErrCallNotActive
	}

	if err := s.calls.SetStatus(ctx, workspaceID, callID, CallStatusQueued, CallStatusInProgress); err != nil {
		// A concurrent transition may have won; re-read and decide again.
		if errors.Is(err, ErrInvalidTransition) {
			current, ferr := s.calls.FindByID(ctx, workspaceID, callID)
			if ferr != nil {
				return VoiceAgentCall{}, ferr
			}
			if current.Status == CallStatusInProgress {
				return current, nil
			}
			return VoiceAgentCall{}, ErrCallNotActive
		}
		return VoiceAgentCall{}, err
	}
	call.Status = CallStatusInProgress
	return call, nil
}

// RecordLanguageUsed persists the detected conversation language when it
// differs from the agent's configured one.
func (s *Service) RecordLanguageUsed(ctx context.Context, workspaceID, callID, language string) error {
	if language == "" {
		return nil
	}
	return s.calls.SetLanguageUsed(ctx, workspaceID, callID, language)
}

type EndRequest struct {
	// Status must be terminal: completed, failed or cancelled.
	Status CallStatus `json:"status" binding:"required"`

	// DurationSeconds and CostMinor override the derived figures when the
	// caller (e.g. a telephony webhook) knows better. Nil means derive.
	DurationSeconds *int   `json:"duration_seconds,omitempty"`
	CostMinor       *int64 `json:"cost_minor,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// End finalizes the call into a terminal state and stamps the final duration
// and cost figures.
//
// When the request carries no explicit figures, duration is derived from
// StartedAt to now and cost from the call's cost ledger. Ending an already
// terminal call overwrites the terminal status and figures (webhook
// retries and late hangup notifications land out of order); transcript and
// cost-ledger state is never duplicated.
func (s *Service) End(ctx context.Context, workspaceID, callID string, req EndRequest) (VoiceAgentCall, error) {
	if !req.Status.IsTerminal() {
		return VoiceAgentCall{}, fmt.Errorf("%w: end status must be terminal, got %q", ErrInvalidArgument, req.Status)
	}

	call, err := s.calls.FindByID(ctx, workspaceID, callID)
	if err != nil {
		return VoiceAgentCall{}, err
	}

	now := s.clock().UTC()

	duration := 0
	if req.DurationSeconds != nil {
		if *req.DurationSeconds < 0 {
			return VoiceAgentCall{}, fmt.Errorf("%w: duration must be >= 0", ErrInvalidArgument)
		}
		duration = *req.DurationSeconds
	} else {
		duration = int(now.Sub(call.StartedAt).Round(time.Second).Seconds())
		if duration < 0 {
			duration = 0
		}
	}

	costMinor := int64(0)
	currency := call.Currency
	if req.CostMinor != nil {
		if *req.CostMinor < 0 {
			return VoiceAgentCall{}, fmt.Errorf("%w: cost must be >= 0", ErrInvalidArgument)
		}
		costMinor = *req.CostMinor
	} else {
		totals, err := s.costs.TotalsByCall(ctx, workspaceID, callID)
		if err != nil {
			return VoiceAgentCall{}, err
		}
		costMinor = totals.TotalMinor
		if totals.Currency != "" {
			currency = totals.Currency
		}
	}

	final, err := s.calls.Finalize(ctx, workspaceID, callID, req.Status, duration, costMinor, currency, req.Reason, now)
	if err != nil {
		return VoiceAgentCall{}, err
	}

	_ = s.audit.LogCallEnded(ctx, workspaceID, callID, string(req.Status),
		fmt.Sprintf(`{"duration_seconds":%d,"cost_minor":%d}`, duration, costMinor))
	return final, nil
}
