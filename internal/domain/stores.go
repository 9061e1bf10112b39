package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TenantStore interface {
	Create(ctx context.Context, t *Tenant) error
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)
}

// InstinctStore is tenant-scoped CRUD over instinct records. Every read and
// write is keyed by tenant; an id owned by another tenant is a NotFound, so
// existence never leaks across the boundary. Counter and rate updates are
// expressed as single conditional statements so concurrent writers on the
// same record cannot lose updates.
type InstinctStore interface {
	Create(ctx context.Context, i *Instinct) error
	GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*Instinct, error)
	// ListByTenant returns the tenant's records plus global defaults,
	// unordered.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Instinct, error)
	Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// Reinforce atomically bumps occurrence count, refreshes the trigger
	// timestamp, and adds boost to confidence capped at 1.0.
	Reinforce(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, boost float64) (*Instinct, error)
	// RecordOutcome folds one success/failure observation into the stored
	// success rate via an exponential moving average with the given alpha.
	RecordOutcome(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, success bool, alpha float64) (*Instinct, error)
	UpdateConfidence(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, confidence float64) error
	// PersistDecay stores a decayed confidence and advances the decay
	// anchor in the same statement, so persistence never changes the
	// read-time projection.
	PersistDecay(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, confidence float64) error

	// AbsorbMerge applies a cluster collapse in one transaction: the
	// survivor takes the new confidence and summed occurrence count, the
	// absorbed records are deleted.
	AbsorbMerge(ctx context.Context, tenantID uuid.UUID, survivorID uuid.UUID, confidence float64, occurrenceCount int, absorbed []uuid.UUID) error

	ListStale(ctx context.Context, tenantID uuid.UUID, idleSince time.Time) ([]Instinct, error)
	// DeleteStale removes records idle since the cutoff whose confidence is
	// below minConfidence, unless reinforced at least minOccurrenceToKeep
	// times.
	DeleteStale(ctx context.Context, tenantID uuid.UUID, idleSince time.Time, minConfidence float64, minOccurrenceToKeep int) (int64, error)
	ListDistinctTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// OutcomeStore is the append-only calibration log.
type OutcomeStore interface {
	Append(ctx context.Context, o *Outcome) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]Outcome, error)
}

// EmotionStore persists the per-tenant affective state.
type EmotionStore interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*EmotionalState, error)
	Upsert(ctx context.Context, s *EmotionalState) error
}
