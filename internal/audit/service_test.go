package audit

import (
	"context"
	"testing"
	"time"
)

func TestAppendFillsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	err := svc.LogTurnDegraded(context.Background(), "tenant-1", "call-1", "synthesis", "tts unreachable")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if e.CreatedAt.IsZero() {
		t.Fatalf("expected timestamp")
	}
	if e.Type != EventTypeTurnDegraded || e.Stage != "synthesis" {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestAppendRejectsMissingWorkspace(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{Type: EventTypeCallEnded}); err != ErrInvalidEvent {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestNilServiceIsDisabled(t *testing.T) {
	var svc *Service
	if err := svc.LogCallEnded(context.Background(), "tenant-1", "call-1", "completed", ""); err != nil {
		t.Fatalf("expected nil service to be a no-op, got %v", err)
	}
}
