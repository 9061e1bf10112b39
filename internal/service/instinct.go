package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/store"
	"go.uber.org/zap"
)

var (
	ErrInstinctNotFound  = errors.New("instinct not found")
	ErrInvalidDomain     = errors.New("invalid domain")
	ErrInvalidSource     = errors.New("invalid source")
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
	ErrTriggerEmpty      = errors.New("trigger is required")
	ErrActionEmpty       = errors.New("action is required")
	ErrImportFormat      = errors.New("unsupported export document")
	ErrInvalidStrategy   = errors.New("invalid import strategy")
)

const (
	// ReinforcementBoost is added to stored confidence each time the same
	// trigger recurs.
	ReinforcementBoost = 0.05
	// OutcomeAlpha is the EMA factor folding one observed outcome into the
	// stored success rate.
	OutcomeAlpha = 0.2

	DefaultStaleDays           = 30
	CleanupStaleDays           = 60
	CleanupMinConfidence       = 0.4
	CleanupMinOccurrenceToKeep = 3
)

type CreateInstinctParams struct {
	Domain     string
	Trigger    string
	Action     string
	Source     string
	Confidence *float64
}

type ImportResult struct {
	Imported int `json:"imported"`
	Merged   int `json:"merged"`
	Deleted  int `json:"deleted"`
}

// InstinctService owns the instinct lifecycle: creation from observation
// events, reinforcement, outcome recording, stale cleanup, and the
// export/import boundary.
type InstinctService struct {
	store       domain.InstinctStore
	outcomes    domain.OutcomeStore
	calibration *CalibrationService
	logger      *zap.Logger
}

func NewInstinctService(st domain.InstinctStore, outcomes domain.OutcomeStore, calibration *CalibrationService, logger *zap.Logger) *InstinctService {
	return &InstinctService{store: st, outcomes: outcomes, calibration: calibration, logger: logger}
}

func (s *InstinctService) Create(ctx context.Context, tenantID uuid.UUID, p CreateInstinctParams) (*domain.Instinct, error) {
	if !domain.ValidInstinctDomain(p.Domain) {
		return nil, ErrInvalidDomain
	}
	if strings.TrimSpace(p.Trigger) == "" {
		return nil, ErrTriggerEmpty
	}
	if strings.TrimSpace(p.Action) == "" {
		return nil, ErrActionEmpty
	}

	source := domain.Source(p.Source)
	if p.Source == "" {
		source = domain.SourceObserved
	} else if !domain.ValidSource(p.Source) {
		return nil, ErrInvalidSource
	}

	confidence := source.InitialConfidence()
	if p.Confidence != nil {
		if *p.Confidence < 0 || *p.Confidence > 1 {
			return nil, ErrInvalidConfidence
		}
		confidence = *p.Confidence
	}

	tid := tenantID
	inst := &domain.Instinct{
		TenantID:    &tid,
		Domain:      domain.InstinctDomain(p.Domain),
		Trigger:     strings.TrimSpace(p.Trigger),
		Action:      strings.TrimSpace(p.Action),
		Source:      source,
		Confidence:  confidence,
		SuccessRate: 0.5,
	}
	if err := s.store.Create(ctx, inst); err != nil {
		return nil, err
	}

	s.logger.Debug("instinct created",
		zap.String("instinct_id", inst.ID.String()),
		zap.String("domain", string(inst.Domain)),
		zap.Float64("confidence", inst.Confidence))

	return inst, nil
}

func (s *InstinctService) GetByID(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Instinct, error) {
	inst, err := s.store.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInstinctNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (s *InstinctService) List(ctx context.Context, tenantID uuid.UUID) ([]domain.Instinct, error) {
	return s.store.ListByTenant(ctx, tenantID)
}

func (s *InstinctService) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	if err := s.store.Delete(ctx, id, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInstinctNotFound
		}
		return err
	}
	return nil
}

// Reinforce records a recurrence of the trigger: occurrence count up, the
// decay clock reset, confidence bumped toward 1.
func (s *InstinctService) Reinforce(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (*domain.Instinct, error) {
	inst, err := s.store.Reinforce(ctx, id, tenantID, ReinforcementBoost)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInstinctNotFound
		}
		return nil, err
	}
	return inst, nil
}

// RecordOutcome folds an observed success or failure into the success rate
// and appends the prediction/outcome pair to the calibration log.
func (s *InstinctService) RecordOutcome(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, success bool) (*domain.Instinct, error) {
	inst, err := s.store.RecordOutcome(ctx, id, tenantID, success, OutcomeAlpha)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInstinctNotFound
		}
		return nil, err
	}

	outcome := &domain.Outcome{
		TenantID:            tenantID,
		InstinctID:          inst.ID,
		PredictedConfidence: inst.Confidence,
		Success:             success,
	}
	if err := s.outcomes.Append(ctx, outcome); err != nil {
		// The instinct update already landed; a lost log entry only delays
		// the next recalibration.
		s.logger.Warn("failed to append outcome", zap.String("instinct_id", id.String()), zap.Error(err))
		return inst, nil
	}

	if s.calibration != nil {
		s.calibration.MaybeRecalibrate(ctx, tenantID)
	}

	return inst, nil
}

func (s *InstinctService) ListStale(ctx context.Context, tenantID uuid.UUID, days int) ([]domain.Instinct, error) {
	if days <= 0 {
		days = DefaultStaleDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	return s.store.ListStale(ctx, tenantID, cutoff)
}

// CleanupStale deletes idle, low-confidence records; anything reinforced at
// least minOccurrenceToKeep times is kept regardless.
func (s *InstinctService) CleanupStale(ctx context.Context, tenantID uuid.UUID, days int, minConfidence float64, minOccurrenceToKeep int) (int64, error) {
	if days <= 0 {
		days = CleanupStaleDays
	}
	if minConfidence <= 0 {
		minConfidence = CleanupMinConfidence
	}
	if minOccurrenceToKeep <= 0 {
		minOccurrenceToKeep = CleanupMinOccurrenceToKeep
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	deleted, err := s.store.DeleteStale(ctx, tenantID, cutoff, minConfidence, minOccurrenceToKeep)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("stale cleanup complete",
			zap.String("tenant_id", tenantID.String()),
			zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// Export produces the versioned portable document for the tenant's own
// records. Global defaults are not exported; they travel with the deploy.
func (s *InstinctService) Export(ctx context.Context, tenantID uuid.UUID) (*domain.ExportDocument, error) {
	all, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	doc := &domain.ExportDocument{
		Version:    domain.ExportVersion,
		ExportedAt: time.Now().UTC(),
		Instincts:  []domain.ExportedInstinct{},
	}
	for _, i := range all {
		if i.TenantID == nil || *i.TenantID != tenantID {
			continue
		}
		doc.Instincts = append(doc.Instincts, domain.ExportedInstinct{
			Domain:          i.Domain,
			Trigger:         i.Trigger,
			Action:          i.Action,
			Source:          i.Source,
			Confidence:      i.Confidence,
			OccurrenceCount: i.OccurrenceCount,
			SuccessRate:     i.SuccessRate,
			LastTriggeredAt: i.LastTriggeredAt,
			CreatedAt:       i.CreatedAt,
		})
	}
	return doc, nil
}

// Import applies an export document. Replace clears the tenant first; merge
// checks each entry against existing records with the clusterer's
// similarity measure and reinforces the match instead of inserting a
// near-duplicate.
func (s *InstinctService) Import(ctx context.Context, tenantID uuid.UUID, doc *domain.ExportDocument, strategy domain.ImportStrategy, confidenceBoost float64) (*ImportResult, error) {
	if doc == nil || doc.Version != domain.ExportVersion {
		return nil, ErrImportFormat
	}
	if !domain.ValidImportStrategy(string(strategy)) {
		return nil, ErrInvalidStrategy
	}

	// Validate every entry before touching any state: a replace must not
	// wipe the tenant and then fail halfway through the document.
	for _, entry := range doc.Instincts {
		if !domain.ValidInstinctDomain(string(entry.Domain)) {
			return nil, ErrInvalidDomain
		}
		if entry.Confidence < 0 || entry.Confidence > 1 {
			return nil, ErrInvalidConfidence
		}
		if entry.Trigger == "" {
			return nil, ErrTriggerEmpty
		}
		if entry.Action == "" {
			return nil, ErrActionEmpty
		}
	}

	result := &ImportResult{}

	if strategy == domain.ImportReplace {
		deleted, err := s.store.DeleteByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		result.Deleted = int(deleted)
	}

	var existing []domain.Instinct
	if strategy == domain.ImportMerge {
		all, err := s.store.ListByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		for _, i := range all {
			if i.TenantID != nil && *i.TenantID == tenantID {
				existing = append(existing, i)
			}
		}
	}

	for _, entry := range doc.Instincts {
		candidate := domain.Instinct{
			Domain:  entry.Domain,
			Trigger: entry.Trigger,
			Action:  entry.Action,
		}

		if strategy == domain.ImportMerge {
			if match := closestMatch(&candidate, existing); match != nil {
				if _, err := s.store.Reinforce(ctx, match.ID, tenantID, ReinforcementBoost); err != nil {
					return nil, err
				}
				result.Merged++
				continue
			}
		}

		source := entry.Source
		if !domain.ValidSource(string(source)) {
			source = domain.SourceImported
		}

		tid := tenantID
		inst := &domain.Instinct{
			TenantID:        &tid,
			Domain:          entry.Domain,
			Trigger:         entry.Trigger,
			Action:          entry.Action,
			Source:          source,
			Confidence:      domain.ClampConfidence(entry.Confidence + confidenceBoost),
			OccurrenceCount: entry.OccurrenceCount,
			SuccessRate:     entry.SuccessRate,
			LastTriggeredAt: entry.LastTriggeredAt,
		}
		if err := s.store.Create(ctx, inst); err != nil {
			return nil, err
		}
		existing = append(existing, *inst)
		result.Imported++
	}

	s.logger.Info("import complete",
		zap.String("tenant_id", tenantID.String()),
		zap.String("strategy", string(strategy)),
		zap.Int("imported", result.Imported),
		zap.Int("merged", result.Merged),
		zap.Int("deleted", result.Deleted))

	return result, nil
}

func closestMatch(candidate *domain.Instinct, existing []domain.Instinct) *domain.Instinct {
	var best *domain.Instinct
	bestSim := 0.0
	for i := range existing {
		sim := Similarity(candidate, &existing[i])
		if sim >= SimilarityThreshold && sim > bestSim {
			best = &existing[i]
			bestSim = sim
		}
	}
	return best
}
