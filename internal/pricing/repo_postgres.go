package pricing

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRateRepo reads rates from the voice_rates and model_rates tables.
//
// Resolution: an exact language/model match wins over the workspace default
// (empty selector); among candidates the most recent effective_from wins.
type PostgresRateRepo struct {
	db *sql.DB
}

func NewPostgresRateRepo(db *sql.DB) *PostgresRateRepo { return &PostgresRateRepo{db: db} }

func (r *PostgresRateRepo) FindVoiceRate(ctx context.Context, workspaceID, language string, at time.Time) (VoiceRate, bool, error) {
	const q = `
SELECT id, workspace_id, COALESCE(language, ''), currency, rate_per_minute_minor,
       billing_increment_seconds, minimum_billable_seconds,
       effective_from, effective_to, status, created_at, updated_at
FROM voice_rates
WHERE workspace_id = $1
  AND (language = $2 OR language = '' OR language IS NULL)
  AND status = 'active'
  AND effective_from <= $3
  AND (effective_to IS NULL OR effective_to > $3)
ORDER BY (language = $2) DESC, effective_from DESC
LIMIT 1
`
	var v VoiceRate
	err := r.db.QueryRowContext(ctx, q, workspaceID, language, at).Scan(
		&v.ID, &v.WorkspaceID, &v.Language, &v.Currency, &v.RatePerMinuteMinor,
		&v.BillingIncrementSeconds, &v.MinimumBillableSeconds,
		&v.EffectiveFrom, &v.EffectiveTo, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VoiceRate{}, false, nil
		}
		return VoiceRate{}, false, err
	}
	return v, true, nil
}

func (r *PostgresRateRepo) FindModelRate(ctx context.Context, workspaceID, model string, at time.Time) (ModelRate, bool, error) {
	const q = `
SELECT id, workspace_id, COALESCE(model, ''), currency, rate_per_1k_tokens_minor,
       effective_from, effective_to, status, created_at, updated_at
FROM model_rates
WHERE workspace_id = $1
  AND (model = $2 OR model = '' OR model IS NULL)
  AND status = 'active'
  AND effective_from <= $3
  AND (effective_to IS NULL OR effective_to > $3)
ORDER BY (model = $2) DESC, effective_from DESC
LIMIT 1
`
	var m ModelRate
	err := r.db.QueryRowContext(ctx, q, workspaceID, model, at).Scan(
		&m.ID, &m.WorkspaceID, &m.Model, &m.Currency, &m.RatePer1KTokensMinor,
		&m.EffectiveFrom, &m.EffectiveTo, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModelRate{}, false, nil
		}
		return ModelRate{}, false, err
	}
	return m, true, nil
}
