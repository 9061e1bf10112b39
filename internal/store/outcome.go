package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutcomeStore is the append-only calibration log. Rows are never updated
// or deleted by the engine.
type OutcomeStore struct {
	db *pgxpool.Pool
}

func NewOutcomeStore(db *pgxpool.Pool) *OutcomeStore {
	return &OutcomeStore{db: db}
}

func (s *OutcomeStore) Append(ctx context.Context, o *domain.Outcome) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO instinct_outcomes (tenant_id, instinct_id, predicted_confidence, success)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		o.TenantID, o.InstinctID, o.PredictedConfidence, o.Success,
	).Scan(&o.ID, &o.CreatedAt)
}

func (s *OutcomeStore) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM instinct_outcomes WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	return count, err
}

func (s *OutcomeStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Outcome, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, instinct_id, predicted_confidence, success, created_at
		 FROM instinct_outcomes
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		var o domain.Outcome
		if err := rows.Scan(&o.ID, &o.TenantID, &o.InstinctID, &o.PredictedConfidence, &o.Success, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
