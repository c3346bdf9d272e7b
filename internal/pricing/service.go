package pricing

import (
	"context"
	"errors"
	"time"
)

// Service calculates per-turn and per-call costs from workspace-scoped rates.
//
// Contract:
// - Rate resolution prefers an exact language/model match over the workspace
//   default (empty selector).
// - Pure calculation + repository lookups; no provider SDK calls.
type Service struct {
	repo  RateRepository
	clock func() time.Time
}

func NewService(repo RateRepository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// RateRepository abstracts rate persistence.
// Implementation can be Postgres, cached, etc.
type RateRepository interface {
	FindVoiceRate(ctx context.Context, workspaceID, language string, at time.Time) (VoiceRate, bool, error)
	FindModelRate(ctx context.Context, workspaceID, model string, at time.Time) (ModelRate, bool, error)
}

var (
	ErrRateNotFound      = errors.New("pricing: rate not found")
	ErrInvalidPricingReq = errors.New("pricing: invalid request")
)

type TurnCostRequest struct {
	WorkspaceID string

	// Language selects the voice rate; Model selects the token rate.
	Language string
	Model    string

	// ElapsedSeconds is the wall-clock conversation time of this turn.
	ElapsedSeconds int

	// TotalTokens is prompt + completion tokens of this turn's generation.
	TotalTokens int

	// At determines which effective rates to use. If zero, service clock is used.
	At time.Time
}

type TurnCost struct {
	WorkspaceID string
	Currency    string

	BillableSeconds int

	VoiceMinor int64
	ModelMinor int64
	TotalMinor int64
}

// CalculateTurnCost prices one conversation turn: elapsed voice time against
// the voice rate plus generated tokens against the model rate.
func (s *Service) CalculateTurnCost(ctx context.Context, req TurnCostRequest) (TurnCost, error) {
	if req.WorkspaceID == "" {
		return TurnCost{}, ErrInvalidPricingReq
	}
	if req.ElapsedSeconds < 0 || req.TotalTokens < 0 {
		return TurnCost{}, ErrInvalidPricingReq
	}

	at := req.At
	if at.IsZero() {
		at = s.clock().UTC()
	}

	vr, ok, err := s.repo.FindVoiceRate(ctx, req.WorkspaceID, req.Language, at)
	if err != nil {
		return TurnCost{}, err
	}
	if !ok {
		return TurnCost{}, ErrRateNotFound
	}

	mr, ok, err := s.repo.FindModelRate(ctx, req.WorkspaceID, req.Model, at)
	if err != nil {
		return TurnCost{}, err
	}
	if !ok {
		return TurnCost{}, ErrRateNotFound
	}
	if mr.Currency != vr.Currency {
		return TurnCost{}, errors.New("pricing: voice and model rates disagree on currency")
	}

	billableSec := billableSeconds(req.ElapsedSeconds, vr.MinimumBillableSeconds, vr.BillingIncrementSeconds)
	voiceMinor := vr.RatePerMinuteMinor * int64(billableMinutesFromSeconds(billableSec))
	modelMinor := mr.RatePer1KTokensMinor * int64(tokenBlocks(req.TotalTokens))

	return TurnCost{
		WorkspaceID:     req.WorkspaceID,
		Currency:        vr.Currency,
		BillableSeconds: billableSec,
		VoiceMinor:      voiceMinor,
		ModelMinor:      modelMinor,
		TotalMinor:      voiceMinor + modelMinor,
	}, nil
}

func billableSeconds(actualSec int, minSec int, incrementSec int) int {
	if actualSec < 0 {
		return 0
	}
	if minSec < 0 {
		minSec = 0
	}
	if incrementSec <= 0 {
		incrementSec = 60
	}

	sec := actualSec
	if sec < minSec {
		sec = minSec
	}

	// round up to nearest increment
	q := sec / incrementSec
	r := sec % incrementSec
	if r != 0 {
		q++
	}
	return q * incrementSec
}

func billableMinutesFromSeconds(sec int) int {
	if sec <= 0 {
		return 0
	}
	m := sec / 60
	if sec%60 != 0 {
		m++
	}
	return m
}

// tokenBlocks rounds token counts up to 1K blocks.
func tokenBlocks(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	b := tokens / 1000
	if tokens%1000 != 0 {
		b++
	}
	return b
}
