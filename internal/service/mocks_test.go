package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/store"
)

// mockInstinctStore implements domain.InstinctStore for testing.
type mockInstinctStore struct {
	instincts map[uuid.UUID]*domain.Instinct
}

func newMockInstinctStore() *mockInstinctStore {
	return &mockInstinctStore{instincts: make(map[uuid.UUID]*domain.Instinct)}
}

// put inserts a fully formed record, bypassing Create's defaulting.
func (m *mockInstinctStore) put(i *domain.Instinct) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	m.instincts[i.ID] = i
}

func (m *mockInstinctStore) owns(i *domain.Instinct, tenantID uuid.UUID) bool {
	return i.TenantID != nil && *i.TenantID == tenantID
}

func (m *mockInstinctStore) visible(i *domain.Instinct, tenantID uuid.UUID) bool {
	return i.TenantID == nil || *i.TenantID == tenantID
}

func (m *mockInstinctStore) Create(ctx context.Context, i *domain.Instinct) error {
	i.ID = uuid.New()
	now := time.Now()
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
	m.instincts[i.ID] = i
	return nil
}

func (m *mockInstinctStore) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Instinct, error) {
	i, ok := m.instincts[id]
	if !ok || !m.visible(i, tenantID) {
		return nil, store.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (m *mockInstinctStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.Instinct, error) {
	var out []domain.Instinct
	for _, i := range m.instincts {
		if m.visible(i, tenantID) {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *mockInstinctStore) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	i, ok := m.instincts[id]
	if !ok || !m.owns(i, tenantID) {
		return store.ErrNotFound
	}
	delete(m.instincts, id)
	return nil
}

func (m *mockInstinctStore) DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var deleted int64
	for id, i := range m.instincts {
		if m.owns(i, tenantID) {
			delete(m.instincts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockInstinctStore) Reinforce(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, boost float64) (*domain.Instinct, error) {
	i, ok := m.instincts[id]
	if !ok || !m.owns(i, tenantID) {
		return nil, store.ErrNotFound
	}
	now := time.Now()
	i.OccurrenceCount++
	i.LastTriggeredAt = &now
	i.Confidence = math.Min(1, i.Confidence+boost)
	i.UpdatedAt = now
	cp := *i
	return &cp, nil
}

func (m *mockInstinctStore) RecordOutcome(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, success bool, alpha float64) (*domain.Instinct, error) {
	i, ok := m.instincts[id]
	if !ok || !m.owns(i, tenantID) {
		return nil, store.ErrNotFound
	}
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	i.SuccessRate = alpha*outcome + (1-alpha)*i.SuccessRate
	i.UpdatedAt = time.Now()
	cp := *i
	return &cp, nil
}

func (m *mockInstinctStore) UpdateConfidence(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, confidence float64) error {
	i, ok := m.instincts[id]
	if !ok || !m.owns(i, tenantID) {
		return store.ErrNotFound
	}
	i.Confidence = confidence
	i.UpdatedAt = time.Now()
	return nil
}

func (m *mockInstinctStore) PersistDecay(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, confidence float64) error {
	i, ok := m.instincts[id]
	if !ok || !m.owns(i, tenantID) {
		return store.ErrNotFound
	}
	now := time.Now()
	i.Confidence = confidence
	i.DecayedAt = &now
	i.UpdatedAt = now
	return nil
}

func (m *mockInstinctStore) AbsorbMerge(ctx context.Context, tenantID uuid.UUID, survivorID uuid.UUID, confidence float64, occurrenceCount int, absorbed []uuid.UUID) error {
	s, ok := m.instincts[survivorID]
	if !ok || !m.owns(s, tenantID) {
		return store.ErrNotFound
	}
	s.Confidence = confidence
	s.OccurrenceCount = occurrenceCount
	s.Source = domain.SourcePatternMerge
	s.UpdatedAt = time.Now()
	for _, id := range absorbed {
		if i, ok := m.instincts[id]; ok && m.owns(i, tenantID) {
			delete(m.instincts, id)
		}
	}
	return nil
}

// activityRef mirrors the SQL staleness reference: last trigger, otherwise
// creation. A decay sweep is not activity and must not refresh it.
func activityRef(i *domain.Instinct) time.Time {
	if i.LastTriggeredAt != nil {
		return *i.LastTriggeredAt
	}
	return i.CreatedAt
}

func (m *mockInstinctStore) ListStale(ctx context.Context, tenantID uuid.UUID, idleSince time.Time) ([]domain.Instinct, error) {
	var out []domain.Instinct
	for _, i := range m.instincts {
		if m.owns(i, tenantID) && activityRef(i).Before(idleSince) {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *mockInstinctStore) DeleteStale(ctx context.Context, tenantID uuid.UUID, idleSince time.Time, minConfidence float64, minOccurrenceToKeep int) (int64, error) {
	var deleted int64
	for id, i := range m.instincts {
		if !m.owns(i, tenantID) {
			continue
		}
		if activityRef(i).Before(idleSince) && i.Confidence < minConfidence && i.OccurrenceCount < minOccurrenceToKeep {
			delete(m.instincts, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockInstinctStore) ListDistinctTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, i := range m.instincts {
		if i.TenantID != nil && !seen[*i.TenantID] {
			seen[*i.TenantID] = true
			out = append(out, *i.TenantID)
		}
	}
	return out, nil
}

// mockOutcomeStore implements domain.OutcomeStore for testing.
type mockOutcomeStore struct {
	outcomes []domain.Outcome
}

func newMockOutcomeStore() *mockOutcomeStore {
	return &mockOutcomeStore{}
}

func (m *mockOutcomeStore) Append(ctx context.Context, o *domain.Outcome) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	m.outcomes = append(m.outcomes, *o)
	return nil
}

func (m *mockOutcomeStore) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	count := 0
	for _, o := range m.outcomes {
		if o.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

func (m *mockOutcomeStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Outcome, error) {
	var out []domain.Outcome
	for i := len(m.outcomes) - 1; i >= 0; i-- {
		if m.outcomes[i].TenantID != tenantID {
			continue
		}
		out = append(out, m.outcomes[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// mockEmotionStore implements domain.EmotionStore for testing.
type mockEmotionStore struct {
	states map[uuid.UUID]*domain.EmotionalState
}

func newMockEmotionStore() *mockEmotionStore {
	return &mockEmotionStore{states: make(map[uuid.UUID]*domain.EmotionalState)}
}

func (m *mockEmotionStore) Get(ctx context.Context, tenantID uuid.UUID) (*domain.EmotionalState, error) {
	st, ok := m.states[tenantID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *st
	cp.History = append([]domain.EmotionSnapshot(nil), st.History...)
	return &cp, nil
}

func (m *mockEmotionStore) Upsert(ctx context.Context, st *domain.EmotionalState) error {
	st.UpdatedAt = time.Now()
	cp := *st
	cp.History = append([]domain.EmotionSnapshot(nil), st.History...)
	m.states[st.TenantID] = &cp
	return nil
}
