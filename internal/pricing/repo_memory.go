package pricing

import (
	"context"
	"sync"
	"time"
)

// MemoryRateRepo is a simple in-memory rate repository useful for tests and
// early development. It is not intended for production use.
type MemoryRateRepo struct {
	mu    sync.RWMutex
	voice []VoiceRate
	model []ModelRate
}

func NewMemoryRateRepo() *MemoryRateRepo { return &MemoryRateRepo{} }

func (r *MemoryRateRepo) PutVoiceRate(v VoiceRate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voice = append(r.voice, v)
}

func (r *MemoryRateRepo) PutModelRate(m ModelRate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.model = append(r.model, m)
}

func effective(from time.Time, to *time.Time, at time.Time) bool {
	if at.Before(from) {
		return false
	}
	if to != nil && !at.Before(*to) {
		return false
	}
	return true
}

func (r *MemoryRateRepo) FindVoiceRate(ctx context.Context, workspaceID, language string, at time.Time) (VoiceRate, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var fallback *VoiceRate
	for i := range r.voice {
		v := r.voice[i]
		if v.WorkspaceID != workspaceID || v.Status != RateStatusActive || !effective(v.EffectiveFrom, v.EffectiveTo, at) {
			continue
		}
		if v.Language == language {
			return v, true, nil
		}
		if v.Language == "" && fallback == nil {
			fallback = &v
		}
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return VoiceRate{}, false, nil
}

func (r *MemoryRateRepo) FindModelRate(ctx context.Context, workspaceID, model string, at time.Time) (ModelRate, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var fallback *ModelRate
	for i := range r.model {
		m := r.model[i]
		if m.WorkspaceID != workspaceID || m.Status != RateStatusActive || !effective(m.EffectiveFrom, m.EffectiveTo, at) {
			continue
		}
		if m.Model == model {
			return m, true, nil
		}
		if m.Model == "" && fallback == nil {
			fallback = &m
		}
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return ModelRate{}, false, nil
}
