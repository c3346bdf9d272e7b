package agents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresRepo reads voice agents from the voice_agents table.
//
// knowledge_base_ids and compliance are stored as JSONB; the closed
// ComplianceConfig struct is the only supported shape for the latter.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) FindByID(ctx context.Context, workspaceID, agentID string) (VoiceAgent, error) {
	const q = `
SELECT id, workspace_id, name, COALESCE(description, ''), language,
       COALESCE(voice_id, ''), COALESCE(voice_tone, ''), system_prompt,
       COALESCE(greeting, ''), COALESCE(knowledge_base_ids, '[]'),
       COALESCE(compliance, '{}'), status, created_at, updated_at
FROM voice_agents
WHERE workspace_id = $1 AND id = $2
`
	var (
		a              VoiceAgent
		kbJSON         []byte
		complianceJSON []byte
	)
	if err := r.db.QueryRowContext(ctx, q, workspaceID, agentID).Scan(
		&a.ID,
		&a.WorkspaceID,
		&a.Name,
		&a.Description,
		&a.Language,
		&a.VoiceID,
		&a.VoiceTone,
		&a.SystemPrompt,
		&a.Greeting,
		&kbJSON,
		&complianceJSON,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VoiceAgent{}, ErrNotFound
		}
		return VoiceAgent{}, err
	}

	if err := json.Unmarshal(kbJSON, &a.KnowledgeBaseIDs); err != nil {
		return VoiceAgent{}, fmt.Errorf("agents: bad knowledge_base_ids for %s: %w", a.ID, err)
	}
	if err := json.Unmarshal(complianceJSON, &a.Compliance); err != nil {
		return VoiceAgent{}, fmt.Errorf("agents: bad compliance config for %s: %w", a.ID, err)
	}
	return a, nil
}
