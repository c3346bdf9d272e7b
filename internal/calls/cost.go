package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Accountant posts per-turn provider costs to the call's cost ledger.
//
// Money invariants:
// - Amounts are minor currency units (paise, cents) held in int64. No floats.
// - Posting is idempotent on (call_id, idempotency_key); a retried turn never
//   double-charges.
// - The running total is a projection over ledger rows, never a mutated field.
type Accountant struct {
	costs    CostRepository
	currency string
	clock    func() time.Time
}

func NewAccountant(costs CostRepository, currency string) *Accountant {
	if currency == "" {
		currency = "USD"
	}
	return &Accountant{costs: costs, currency: currency, clock: time.Now}
}

// TurnKey is the ledger idempotency key for a numbered turn.
func TurnKey(turnNumber int) string { return fmt.Sprintf("turn-%d", turnNumber) }

// GreetingKey is the ledger idempotency key for the greeting exchange.
const GreetingKey = "greeting"

// RecordTurn appends one turn's cost. Replays return the stored entry and
// inserted=false.
func (a *Accountant) RecordTurn(ctx context.Context, workspaceID, callID, idempotencyKey string, amountMinor int64, elapsedSeconds int, breakdown string) (CostEntry, bool, error) {
	if workspaceID == "" || callID == "" {
		return CostEntry{}, false, fmt.Errorf("%w: workspace and call ids required", ErrInvalidArgument)
	}
	if idempotencyKey == "" {
		return CostEntry{}, false, fmt.Errorf("%w: idempotency key required", ErrInvalidArgument)
	}
	if amountMinor < 0 {
		return CostEntry{}, false, fmt.Errorf("%w: amount must be >= 0", ErrInvalidArgument)
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	entry := CostEntry{
		ID:             uuid.NewString(),
		WorkspaceID:    workspaceID,
		CallID:         callID,
		IdempotencyKey: idempotencyKey,
		AmountMinor:    amountMinor,
		Currency:       a.currency,
		ElapsedSeconds: elapsedSeconds,
		Breakdown:      breakdown,
		CreatedAt:      a.clock().UTC(),
	}
	return a.costs.Append(ctx, entry)
}

// Totals returns the running accumulation for one call.
func (a *Accountant) Totals(ctx context.Context, workspaceID, callID string) (CostTotals, error) {
	return a.costs.TotalsByCall(ctx, workspaceID, callID)
}
