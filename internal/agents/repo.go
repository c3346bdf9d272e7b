package agents

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("agent not found")

// Repository is the persistence contract for voice agents.
//
// Tenancy invariant: lookups are always workspace-scoped. A miss and a
// cross-workspace hit are indistinguishable to the caller (both ErrNotFound),
// so existence of another tenant's agents never leaks.
type Repository interface {
	FindByID(ctx context.Context, workspaceID, agentID string) (VoiceAgent, error)
}
