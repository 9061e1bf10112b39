package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmotionStore keeps one row per tenant with the current state and a small
// JSON history for diagnostics.
type EmotionStore struct {
	db *pgxpool.Pool
}

func NewEmotionStore(db *pgxpool.Pool) *EmotionStore {
	return &EmotionStore{db: db}
}

func (s *EmotionStore) Get(ctx context.Context, tenantID uuid.UUID) (*domain.EmotionalState, error) {
	st := &domain.EmotionalState{}
	var history []byte
	err := s.db.QueryRow(ctx,
		`SELECT tenant_id, state, confidence, history, updated_at
		 FROM emotional_states WHERE tenant_id = $1`,
		tenantID,
	).Scan(&st.TenantID, &st.State, &st.Confidence, &history, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &st.History); err != nil {
			return nil, fmt.Errorf("decode emotion history: %w", err)
		}
	}
	return st, nil
}

func (s *EmotionStore) Upsert(ctx context.Context, st *domain.EmotionalState) error {
	history, err := json.Marshal(st.History)
	if err != nil {
		return fmt.Errorf("encode emotion history: %w", err)
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO emotional_states (tenant_id, state, confidence, history)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id)
		 DO UPDATE SET state = $2, confidence = $3, history = $4, updated_at = NOW()
		 RETURNING updated_at`,
		st.TenantID, st.State, st.Confidence, history,
	).Scan(&st.UpdatedAt)
}
