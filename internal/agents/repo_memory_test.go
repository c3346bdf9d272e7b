package agents

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRepo_FindByID(t *testing.T) {
	repo := NewMemoryRepo(VoiceAgent{
		ID:          "agent-1",
		WorkspaceID: "tenant-1",
		Name:        "Support Bot",
		Language:    "en",
		Status:      AgentStatusActive,
	})

	a, err := repo.FindByID(context.Background(), "tenant-1", "agent-1")
	if err != nil {
		t.Fatalf("expected agent, got %v", err)
	}
	if a.Name != "Support Bot" {
		t.Fatalf("expected Support Bot, got %q", a.Name)
	}
}

func TestMemoryRepo_CrossWorkspaceIsNotFound(t *testing.T) {
	repo := NewMemoryRepo(VoiceAgent{ID: "agent-1", WorkspaceID: "tenant-1"})

	// A different workspace must not even learn that agent-1 exists.
	_, err := repo.FindByID(context.Background(), "tenant-2", "agent-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, err = repo.FindByID(context.Background(), "tenant-1", "agent-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
