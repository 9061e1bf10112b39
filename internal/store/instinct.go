package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InstinctStore struct {
	db *pgxpool.Pool
}

func NewInstinctStore(db *pgxpool.Pool) *InstinctStore {
	return &InstinctStore{db: db}
}

const instinctColumns = `id, tenant_id, domain, trigger_text, action, source, confidence, occurrence_count, success_rate, last_triggered_at, decayed_at, created_at, updated_at`

func scanInstinct(row pgx.Row, i *domain.Instinct) error {
	return row.Scan(&i.ID, &i.TenantID, &i.Domain, &i.Trigger, &i.Action, &i.Source,
		&i.Confidence, &i.OccurrenceCount, &i.SuccessRate, &i.LastTriggeredAt, &i.DecayedAt, &i.CreatedAt, &i.UpdatedAt)
}

func (s *InstinctStore) Create(ctx context.Context, i *domain.Instinct) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO instincts (tenant_id, domain, trigger_text, action, source, confidence, occurrence_count, success_rate, last_triggered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		i.TenantID, i.Domain, i.Trigger, i.Action, i.Source, i.Confidence, i.OccurrenceCount, i.SuccessRate, i.LastTriggeredAt,
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
}

// Reads include global defaults (NULL tenant); writes never touch them.
func (s *InstinctStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Instinct, error) {
	i := &domain.Instinct{}
	err := scanInstinct(s.db.QueryRow(ctx,
		`SELECT `+instinctColumns+` FROM instincts
		 WHERE id = $1 AND (tenant_id = $2 OR tenant_id IS NULL)`,
		id, tenantID,
	), i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

func (s *InstinctStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Instinct, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+instinctColumns+` FROM instincts
		 WHERE tenant_id = $1 OR tenant_id IS NULL`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list instincts: %w", err)
	}
	defer rows.Close()

	var instincts []domain.Instinct
	for rows.Next() {
		var i domain.Instinct
		if err := scanInstinct(rows, &i); err != nil {
			return nil, fmt.Errorf("scan instinct row: %w", err)
		}
		instincts = append(instincts, i)
	}
	return instincts, rows.Err()
}

func (s *InstinctStore) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM instincts WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *InstinctStore) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM instincts WHERE tenant_id = $1`,
		tenantID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Reinforce is a single conditional UPDATE so simultaneous reinforcements
// cannot lose counter increments.
func (s *InstinctStore) Reinforce(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, boost float64) (*domain.Instinct, error) {
	i := &domain.Instinct{}
	err := scanInstinct(s.db.QueryRow(ctx,
		`UPDATE instincts
		 SET occurrence_count = occurrence_count + 1,
		     last_triggered_at = NOW(),
		     confidence = LEAST(confidence + $3, 1.0),
		     updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING `+instinctColumns,
		id, tenantID, boost,
	), i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

// RecordOutcome folds one observation into the success rate in place:
// rate' = alpha*outcome + (1-alpha)*rate.
func (s *InstinctStore) RecordOutcome(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, success bool, alpha float64) (*domain.Instinct, error) {
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	i := &domain.Instinct{}
	err := scanInstinct(s.db.QueryRow(ctx,
		`UPDATE instincts
		 SET success_rate = $3 * $4 + (1 - $3) * success_rate,
		     updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING `+instinctColumns,
		id, tenantID, alpha, outcome,
	), i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return i, nil
}

func (s *InstinctStore) UpdateConfidence(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, confidence float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE instincts SET confidence = $3, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, confidence,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PersistDecay advances the decay anchor together with the confidence so a
// sweep never changes what readers project.
func (s *InstinctStore) PersistDecay(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, confidence float64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE instincts SET confidence = $3, decayed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, confidence,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *InstinctStore) AbsorbMerge(ctx context.Context, tenantID uuid.UUID, survivorID uuid.UUID, confidence float64, occurrenceCount int, absorbed []uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE instincts
		 SET confidence = $3, occurrence_count = $4, source = $5, updated_at = NOW()
		 WHERE id = $1 AND tenant_id = $2`,
		survivorID, tenantID, confidence, occurrenceCount, domain.SourcePatternMerge,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if len(absorbed) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM instincts WHERE tenant_id = $1 AND id = ANY($2)`,
			tenantID, absorbed,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *InstinctStore) ListStale(ctx context.Context, tenantID uuid.UUID, idleSince time.Time) ([]domain.Instinct, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+instinctColumns+` FROM instincts
		 WHERE tenant_id = $1 AND COALESCE(last_triggered_at, created_at) < $2
		 ORDER BY COALESCE(last_triggered_at, created_at) ASC`,
		tenantID, idleSince,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale: %w", err)
	}
	defer rows.Close()

	var instincts []domain.Instinct
	for rows.Next() {
		var i domain.Instinct
		if err := scanInstinct(rows, &i); err != nil {
			return nil, fmt.Errorf("scan stale row: %w", err)
		}
		instincts = append(instincts, i)
	}
	return instincts, rows.Err()
}

func (s *InstinctStore) DeleteStale(ctx context.Context, tenantID uuid.UUID, idleSince time.Time, minConfidence float64, minOccurrenceToKeep int) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM instincts
		 WHERE tenant_id = $1
		   AND COALESCE(last_triggered_at, created_at) < $2
		   AND confidence < $3
		   AND occurrence_count < $4`,
		tenantID, idleSince, minConfidence, minOccurrenceToKeep,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *InstinctStore) ListDistinctTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT tenant_id FROM instincts WHERE tenant_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenantIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenantIDs = append(tenantIDs, id)
	}
	return tenantIDs, rows.Err()
}
