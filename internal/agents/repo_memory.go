package agents

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
// It is not intended for production use.
type MemoryRepo struct {
	mu     sync.RWMutex
	agents map[string]VoiceAgent
}

func NewMemoryRepo(seed ...VoiceAgent) *MemoryRepo {
	r := &MemoryRepo{agents: make(map[string]VoiceAgent, len(seed))}
	for _, a := range seed {
		r.agents[a.ID] = a
	}
	return r
}

func (r *MemoryRepo) Put(a VoiceAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID] = a
}

func (r *MemoryRepo) FindByID(ctx context.Context, workspaceID, agentID string) (VoiceAgent, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[agentID]
	if !ok || a.WorkspaceID != workspaceID {
		return VoiceAgent{}, ErrNotFound
	}
	return a, nil
}
