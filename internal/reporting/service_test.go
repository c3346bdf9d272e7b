package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"voiceagent-platform/internal/audit"
	"voiceagent-platform/internal/calls"
)

func seedCalls(t *testing.T) *calls.MemoryRepo {
	t.Helper()
	repo := calls.NewMemoryRepo()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rows := []calls.VoiceAgentCall{
		{ID: "c1", WorkspaceID: "ws-1", AgentID: "a1", Status: calls.CallStatusCompleted, StartedAt: base, DurationSeconds: 120, CostMinor: 600, Currency: "INR"},
		{ID: "c2", WorkspaceID: "ws-1", AgentID: "a1", Status: calls.CallStatusFailed, StartedAt: base.Add(time.Hour), DurationSeconds: 30, CostMinor: 150, Currency: "INR"},
		{ID: "c3", WorkspaceID: "ws-1", AgentID: "a2", Status: calls.CallStatusInProgress, StartedAt: base.Add(2 * time.Hour), DurationSeconds: 0},
		{ID: "c4", WorkspaceID: "ws-2", AgentID: "a9", Status: calls.CallStatusCompleted, StartedAt: base, DurationSeconds: 999, CostMinor: 9999, Currency: "USD"},
		{ID: "c5", WorkspaceID: "ws-1", AgentID: "a1", Status: calls.CallStatusCancelled, StartedAt: base.Add(48 * time.Hour), DurationSeconds: 10, CostMinor: 50, Currency: "INR"},
	}
	for _, c := range rows {
		if err := repo.Create(context.Background(), c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return repo
}

func seedDegradations(t *testing.T) *audit.MemoryRepo {
	t.Helper()
	repo := audit.NewMemoryRepo()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	events := []audit.Event{
		{ID: "e1", WorkspaceID: "ws-1", Type: audit.EventTypeTurnDegraded, CallID: "c1", Stage: "synthesis", CreatedAt: base.Add(time.Minute)},
		{ID: "e2", WorkspaceID: "ws-1", Type: audit.EventTypeTurnDegraded, CallID: "c2", Stage: "retrieval", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "e3", WorkspaceID: "ws-1", Type: audit.EventTypeGenerationFailed, CallID: "c2", CreatedAt: base.Add(3 * time.Minute)},
		{ID: "e4", WorkspaceID: "ws-2", Type: audit.EventTypeTurnDegraded, CallID: "c4", Stage: "synthesis", CreatedAt: base.Add(time.Minute)},
		{ID: "e5", WorkspaceID: "ws-1", Type: audit.EventTypeTurnDegraded, CallID: "c5", Stage: "synthesis", CreatedAt: base.Add(48 * time.Hour)},
	}
	for _, e := range events {
		if err := repo.Append(context.Background(), e); err != nil {
			t.Fatalf("seed audit: %v", err)
		}
	}
	return repo
}

func TestCallsSummary_AggregatesWorkspaceScoped(t *testing.T) {
	svc := NewService(seedCalls(t), seedDegradations(t))

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		WorkspaceID: "ws-1",
		Range: TimeRange{
			From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// c5 starts outside the range, c4 belongs to another workspace.
	if got.TotalCalls != 3 {
		t.Fatalf("expected 3 calls, got %d", got.TotalCalls)
	}
	if got.CompletedCalls != 1 || got.FailedCalls != 1 || got.InProgressCalls != 1 {
		t.Fatalf("unexpected breakdown: %+v", got)
	}
	if got.TotalCostMinor != 750 {
		t.Fatalf("expected terminal-call cost 750, got %d", got.TotalCostMinor)
	}
	if got.AverageDurationSeconds != 50 {
		t.Fatalf("expected average duration 50s, got %d", got.AverageDurationSeconds)
	}
	if got.Currency != "INR" {
		t.Fatalf("expected INR, got %q", got.Currency)
	}
	// e3 is a generation failure, e4 another workspace, e5 outside the range.
	if got.DegradedTurns != 2 {
		t.Fatalf("expected 2 degraded turns, got %d", got.DegradedTurns)
	}
}

func TestCallsSummary_AgentFilter(t *testing.T) {
	svc := NewService(seedCalls(t), seedDegradations(t))

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{
		WorkspaceID: "ws-1",
		AgentID:     "a2",
		Range: TimeRange{
			From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if got.TotalCalls != 1 || got.InProgressCalls != 1 {
		t.Fatalf("expected only agent a2's call, got %+v", got)
	}
}

func TestCallsSummary_RejectsBadRanges(t *testing.T) {
	svc := NewService(seedCalls(t), nil)

	cases := []CallsSummaryRequest{
		{},
		{WorkspaceID: "ws-1"},
		{WorkspaceID: "ws-1", Range: TimeRange{
			From: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	for i, req := range cases {
		if _, err := svc.CallsSummary(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}
