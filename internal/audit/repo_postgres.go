package audit

import (
	"context"
	"database/sql"
	"time"
)

// PostgresRepo appends audit events to the audit_events table.
// INSERT-only: no update or delete statements exist in this file on purpose.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, workspace_id, type, agent_id, call_id, stage, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, e.WorkspaceID, e.Type, e.AgentID, e.CallID, e.Stage, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}

// CountByType serves reporting aggregations over [from, to).
func (r *PostgresRepo) CountByType(ctx context.Context, workspaceID string, t EventType, from, to time.Time) (int, error) {
	const q = `
SELECT COUNT(*)
FROM audit_events
WHERE workspace_id = $1 AND type = $2 AND created_at >= $3 AND created_at < $4
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, workspaceID, t, from, to).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
