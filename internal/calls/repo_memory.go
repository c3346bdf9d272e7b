package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo implements all three persistence contracts in memory.
// Useful for tests and early development; not intended for production.
type MemoryRepo struct {
	mu          sync.Mutex
	calls       map[string]VoiceAgentCall
	transcripts []TranscriptEntry
	costs       []CostEntry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: make(map[string]VoiceAgentCall)}
}

/* ----- CallRepository ----- */

func (r *MemoryRepo) Create(ctx context.Context, c VoiceAgentCall) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[c.ID] = c
	return nil
}

func (r *MemoryRepo) FindByID(ctx context.Context, workspaceID, callID string) (VoiceAgentCall, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(workspaceID, callID)
}

func (r *MemoryRepo) findLocked(workspaceID, callID string) (VoiceAgentCall, error) {
	c, ok := r.calls[callID]
	if !ok || c.WorkspaceID != workspaceID {
		return VoiceAgentCall{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) SetStatus(ctx context.Context, workspaceID, callID string, from, to CallStatus) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.findLocked(workspaceID, callID)
	if err != nil {
		return err
	}
	if c.Status != from {
		return ErrInvalidTransition
	}
	c.Status = to
	c.UpdatedAt = time.Now().UTC()
	r.calls[callID] = c
	return nil
}

func (r *MemoryRepo) SetLanguageUsed(ctx context.Context, workspaceID, callID, language string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.findLocked(workspaceID, callID)
	if err != nil {
		return err
	}
	c.LanguageUsed = language
	r.calls[callID] = c
	return nil
}

func (r *MemoryRepo) Finalize(ctx context.Context, workspaceID, callID string, status CallStatus, durationSeconds int, costMinor int64, currency, endReason string, endedAt time.Time) (VoiceAgentCall, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.findLocked(workspaceID, callID)
	if err != nil {
		return VoiceAgentCall{}, err
	}
	c.Status = status
	c.DurationSeconds = durationSeconds
	c.CostMinor = costMinor
	c.Currency = currency
	c.EndReason = endReason
	c.EndedAt = &endedAt
	c.UpdatedAt = endedAt
	r.calls[callID] = c
	return c, nil
}

func (r *MemoryRepo) ListByWorkspace(ctx context.Context, workspaceID string, from, to time.Time) ([]VoiceAgentCall, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []VoiceAgentCall
	for _, c := range r.calls {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if c.StartedAt.Before(from) || !c.StartedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

/* ----- TranscriptRepository ----- */

func (r *MemoryRepo) AppendTurn(ctx context.Context, entries ...TranscriptEntry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, entries...)
	return nil
}

func (r *MemoryRepo) ListByCall(ctx context.Context, workspaceID, callID string) ([]TranscriptEntry, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []TranscriptEntry
	for _, e := range r.transcripts {
		if e.WorkspaceID == workspaceID && e.CallID == callID {
			out = append(out, e)
		}
	}
	// Stable insertion order within a turn; sort keeps cross-turn ordering.
	sort.SliceStable(out, func(i, j int) bool { return out[i].TurnNumber < out[j].TurnNumber })
	return out, nil
}

/* ----- CostRepository ----- */

func (r *MemoryRepo) Append(ctx context.Context, e CostEntry) (CostEntry, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.costs {
		if existing.CallID == e.CallID && existing.IdempotencyKey == e.IdempotencyKey {
			return existing, false, nil
		}
	}
	r.costs = append(r.costs, e)
	return e, true, nil
}

func (r *MemoryRepo) TotalsByCall(ctx context.Context, workspaceID, callID string) (CostTotals, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := CostTotals{CallID: callID}
	for _, e := range r.costs {
		if e.WorkspaceID != workspaceID || e.CallID != callID {
			continue
		}
		out.TotalMinor += e.AmountMinor
		out.ElapsedSeconds += e.ElapsedSeconds
		out.Entries++
		if out.Currency == "" {
			out.Currency = e.Currency
		}
	}
	return out, nil
}
