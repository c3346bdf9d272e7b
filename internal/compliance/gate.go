package compliance

import (
	"context"
	"errors"
	"fmt"

	"voiceagent-platform/internal/agents"
)

// Verifier is the external DND registry lookup.
//
// Implementations must be side-effect free: the gate may invoke the same
// lookup multiple times for the same number (retries, repeated initiation
// attempts) without rate-limit consequences attributable to this component.
type Verifier interface {
	CheckDND(ctx context.Context, phoneNumber string) (DNDStatus, error)
}

// DNDStatus is the registry's answer for one phone number.
type DNDStatus struct {
	IsDND  bool   `json:"is_dnd"`
	Status string `json:"status,omitempty"`
}

// Decision is the gate's verdict for one call attempt.
// Blocked carries a human-readable Reason naming the failed check; the
// reason reaches the tenant user, so keep it presentable.
type Decision struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// ErrVerifierUnavailable distinguishes a registry outage from an explicit
// block. Policy here is fail-closed: the caller must not place the call, but
// may retry initiation later, which an explicit block does not invite.
var ErrVerifierUnavailable = errors.New("compliance: verifier unavailable")

// Gate evaluates an agent's compliance configuration before a call is placed.
//
// Rules:
// - Disabled checks are skipped entirely: no external lookup happens.
// - Any enabled check reporting a block wins; the gate returns the reason.
// - The gate performs no mutation; it is safe to invoke repeatedly.
// - A verifier error is retried once, then surfaced as ErrVerifierUnavailable.
type Gate struct {
	dnd Verifier
}

func NewGate(dnd Verifier) *Gate {
	return &Gate{dnd: dnd}
}

func (g *Gate) Check(ctx context.Context, cfg agents.ComplianceConfig, phoneNumber string) (Decision, error) {
	if phoneNumber == "" {
		return Decision{}, errors.New("compliance: phone number required")
	}

	if cfg.CheckDND {
		if g.dnd == nil {
			return Decision{}, fmt.Errorf("%w: no DND verifier configured", ErrVerifierUnavailable)
		}

		status, err := g.dnd.CheckDND(ctx, phoneNumber)
		if err != nil {
			// One retry; transient registry blips are common and cheap to absorb.
			if ctx.Err() != nil {
				return Decision{}, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
			}
			status, err = g.dnd.CheckDND(ctx, phoneNumber)
			if err != nil {
				return Decision{}, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
			}
		}

		if status.IsDND {
			return Decision{
				Blocked: true,
				Reason:  "number is registered on the Do-Not-Disturb registry",
			}, nil
		}
	}

	return Decision{}, nil
}
