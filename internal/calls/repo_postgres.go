package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voiceagent-platform/pkg/utils"
)

// PostgresRepo implements the call, transcript and cost-ledger contracts.
//
// NOTE: This repository assumes the following tables exist:
// - voice_agent_calls
// - call_transcripts (immutable append-only)
// - call_cost_ledger (immutable append-only) with
//   UNIQUE (call_id, idempotency_key)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const callColumns = `
id, workspace_id, agent_id, customer_phone, COALESCE(customer_name, ''),
language, system_prompt, COALESCE(knowledge_base_ids, '[]'), status,
COALESCE(language_used, ''), started_at, ended_at, duration_seconds,
cost_minor, COALESCE(currency, ''), COALESCE(end_reason, ''),
created_at, updated_at`

func scanCall(row *sql.Row) (VoiceAgentCall, error) {
	var (
		c      VoiceAgentCall
		kbJSON []byte
	)
	err := row.Scan(
		&c.ID,
		&c.WorkspaceID,
		&c.AgentID,
		&c.CustomerPhone,
		&c.CustomerName,
		&c.Language,
		&c.SystemPrompt,
		&kbJSON,
		&c.Status,
		&c.LanguageUsed,
		&c.StartedAt,
		&c.EndedAt,
		&c.DurationSeconds,
		&c.CostMinor,
		&c.Currency,
		&c.EndReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VoiceAgentCall{}, ErrNotFound
		}
		return VoiceAgentCall{}, err
	}
	if err := json.Unmarshal(kbJSON, &c.KnowledgeBaseIDs); err != nil {
		return VoiceAgentCall{}, fmt.Errorf("calls: bad knowledge_base_ids for %s: %w", c.ID, err)
	}
	return c, nil
}

func (r *PostgresRepo) Create(ctx context.Context, c VoiceAgentCall) error {
	kbJSON, err := json.Marshal(c.KnowledgeBaseIDs)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO voice_agent_calls (
  id, workspace_id, agent_id, customer_phone, customer_name,
  language, system_prompt, knowledge_base_ids, status, language_used,
  started_at, duration_seconds, cost_minor, currency, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`
	_, err = r.db.ExecContext(ctx, q,
		c.ID, c.WorkspaceID, c.AgentID, c.CustomerPhone, c.CustomerName,
		c.Language, c.SystemPrompt, kbJSON, c.Status, c.LanguageUsed,
		c.StartedAt, c.DurationSeconds, c.CostMinor, c.Currency, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) FindByID(ctx context.Context, workspaceID, callID string) (VoiceAgentCall, error) {
	q := `SELECT ` + callColumns + ` FROM voice_agent_calls WHERE workspace_id = $1 AND id = $2`
	return scanCall(r.db.QueryRowContext(ctx, q, workspaceID, callID))
}

func (r *PostgresRepo) SetStatus(ctx context.Context, workspaceID, callID string, from, to CallStatus) error {
	const q = `
UPDATE voice_agent_calls
SET status = $4, updated_at = now()
WHERE workspace_id = $1 AND id = $2 AND status = $3
`
	res, err := r.db.ExecContext(ctx, q, workspaceID, callID, from, to)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing call from a lost CAS race.
		if _, err := r.FindByID(ctx, workspaceID, callID); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *PostgresRepo) SetLanguageUsed(ctx context.Context, workspaceID, callID, language string) error {
	const q = `
UPDATE voice_agent_calls
SET language_used = $3, updated_at = now()
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, workspaceID, callID, language)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Finalize(ctx context.Context, workspaceID, callID string, status CallStatus, durationSeconds int, costMinor int64, currency, endReason string, endedAt time.Time) (VoiceAgentCall, error) {
	const q = `
UPDATE voice_agent_calls
SET status = $3, duration_seconds = $4, cost_minor = $5, currency = $6,
    end_reason = $7, ended_at = $8, updated_at = $8
WHERE workspace_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q, workspaceID, callID, status, durationSeconds, costMinor, currency, endReason, endedAt)
	if err != nil {
		return VoiceAgentCall{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return VoiceAgentCall{}, err
	}
	if n == 0 {
		return VoiceAgentCall{}, ErrNotFound
	}
	return r.FindByID(ctx, workspaceID, callID)
}

func (r *PostgresRepo) ListByWorkspace(ctx context.Context, workspaceID string, from, to time.Time) ([]VoiceAgentCall, error) {
	q := `SELECT ` + callColumns + `
FROM voice_agent_calls
WHERE workspace_id = $1 AND started_at >= $2 AND started_at < $3
ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, q, workspaceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VoiceAgentCall
	for rows.Next() {
		var (
			c      VoiceAgentCall
			kbJSON []byte
		)
		if err := rows.Scan(
			&c.ID, &c.WorkspaceID, &c.AgentID, &c.CustomerPhone, &c.CustomerName,
			&c.Language, &c.SystemPrompt, &kbJSON, &c.Status, &c.LanguageUsed,
			&c.StartedAt, &c.EndedAt, &c.DurationSeconds, &c.CostMinor, &c.Currency,
			&c.EndReason, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(kbJSON, &c.KnowledgeBaseIDs); err != nil {
			return nil, fmt.Errorf("calls: bad knowledge_base_ids for %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

/* ----- TranscriptRepository ----- */

func (r *PostgresRepo) AppendTurn(ctx context.Context, entries ...TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	const q = `
INSERT INTO call_transcripts (
  id, workspace_id, call_id, turn_number, speaker, text, audio_ref, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	// One transaction per turn: both rows of an exchange land or neither does.
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, q,
				e.ID, e.WorkspaceID, e.CallID, e.TurnNumber, e.Speaker, e.Text, e.AudioRef, e.CreatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) ListByCall(ctx context.Context, workspaceID, callID string) ([]TranscriptEntry, error) {
	const q = `
SELECT id, workspace_id, call_id, turn_number, speaker, text, COALESCE(audio_ref, ''), created_at
FROM call_transcripts
WHERE workspace_id = $1 AND call_id = $2
ORDER BY turn_number, created_at, speaker DESC
`
	// speaker DESC orders customer before agent within one turn.
	rows, err := r.db.QueryContext(ctx, q, workspaceID, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.CallID, &e.TurnNumber, &e.Speaker, &e.Text, &e.AudioRef, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

/* ----- CostRepository ----- */

func (r *PostgresRepo) Append(ctx context.Context, e CostEntry) (CostEntry, bool, error) {
	const insert = `
INSERT INTO call_cost_ledger (
  id, workspace_id, call_id, idempotency_key, amount_minor, currency,
  elapsed_seconds, breakdown, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (call_id, idempotency_key) DO NOTHING
`
	res, err := r.db.ExecContext(ctx, insert,
		e.ID, e.WorkspaceID, e.CallID, e.IdempotencyKey, e.AmountMinor, e.Currency,
		e.ElapsedSeconds, e.Breakdown, e.CreatedAt,
	)
	if err != nil {
		return CostEntry{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return CostEntry{}, false, err
	}
	if n == 1 {
		return e, true, nil
	}

	// Idempotent replay: return the stored entry.
	const find = `
SELECT id, workspace_id, call_id, idempotency_key, amount_minor, currency,
       elapsed_seconds, COALESCE(breakdown, ''), created_at
FROM call_cost_ledger
WHERE call_id = $1 AND idempotency_key = $2
`
	var stored CostEntry
	if err := r.db.QueryRowContext(ctx, find, e.CallID, e.IdempotencyKey).Scan(
		&stored.ID, &stored.WorkspaceID, &stored.CallID, &stored.IdempotencyKey,
		&stored.AmountMinor, &stored.Currency, &stored.ElapsedSeconds,
		&stored.Breakdown, &stored.CreatedAt,
	); err != nil {
		return CostEntry{}, false, err
	}
	return stored, false, nil
}

func (r *PostgresRepo) TotalsByCall(ctx context.Context, workspaceID, callID string) (CostTotals, error) {
	const q = `
SELECT COALESCE(SUM(amount_minor), 0), COALESCE(MAX(currency), ''),
       COALESCE(SUM(elapsed_seconds), 0), COUNT(*)
FROM call_cost_ledger
WHERE workspace_id = $1 AND call_id = $2
`
	out := CostTotals{CallID: callID}
	if err := r.db.QueryRowContext(ctx, q, workspaceID, callID).Scan(
		&out.TotalMinor, &out.Currency, &out.ElapsedSeconds, &out.Entries,
	); err != nil {
		return CostTotals{}, err
	}
	return out, nil
}
