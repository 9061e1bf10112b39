package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"go.uber.org/zap"
)

const (
	DecayHalfLifeDays      = 30.0
	DecayMinConfidence     = 0.3
	DecayExemptOccurrences = 5
	// DecayPersistDeadBand keeps the sweep from rewriting rows for
	// sub-noise confidence drift.
	DecayPersistDeadBand = 0.05

	defaultDecaySweepInterval = 6 * time.Hour
)

// Decay projects an instinct's confidence to the given time: exponential
// half-life against the decay anchor (last reinforcement, last persisted
// sweep, or creation), floored at DecayMinConfidence. Heavily reinforced
// instincts do not decay at all. Pure; never mutates the record.
func Decay(i *domain.Instinct, now time.Time) float64 {
	if i.OccurrenceCount >= DecayExemptOccurrences {
		return i.Confidence
	}
	ageDays := now.Sub(i.DecayReference()).Hours() / 24
	if ageDays <= 0 {
		return i.Confidence
	}
	factor := math.Pow(0.5, ageDays/DecayHalfLifeDays)
	return math.Max(DecayMinConfidence, i.Confidence*factor)
}

type DecaySweepResult struct {
	TenantsSwept       int `json:"tenants_swept"`
	InstinctsPersisted int `json:"instincts_persisted"`
	InstinctsSkipped   int `json:"instincts_skipped"`
}

// DecaySweepService periodically persists decayed confidence values.
// Reads always see the decayed projection regardless; the sweep only keeps
// stored values from drifting too far from reality.
type DecaySweepService struct {
	store  domain.InstinctStore
	locks  *tenantLocks
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewDecaySweepService(store domain.InstinctStore, locks *tenantLocks, logger *zap.Logger) *DecaySweepService {
	return &DecaySweepService{
		store:    store,
		locks:    locks,
		logger:   logger,
		interval: defaultDecaySweepInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *DecaySweepService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *DecaySweepService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("decay sweep worker started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				s.RunSweep(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("decay sweep worker stopped")
				return
			}
		}
	}()
}

func (s *DecaySweepService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *DecaySweepService) RunSweep(ctx context.Context) *DecaySweepResult {
	result := &DecaySweepResult{}

	tenantIDs, err := s.store.ListDistinctTenantIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list tenants for decay sweep", zap.Error(err))
		return result
	}

	for _, tenantID := range tenantIDs {
		persisted, skipped, err := s.RunSweepForTenant(ctx, tenantID)
		if err != nil {
			s.logger.Error("decay sweep failed for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			continue
		}
		result.TenantsSwept++
		result.InstinctsPersisted += persisted
		result.InstinctsSkipped += skipped

		if persisted > 0 {
			s.logger.Info("decay sweep complete for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Int("persisted", persisted),
				zap.Int("skipped", skipped))
		}
	}

	return result
}

func (s *DecaySweepService) RunSweepForTenant(ctx context.Context, tenantID uuid.UUID) (persisted, skipped int, err error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	now := time.Now()

	instincts, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}

	for idx := range instincts {
		inst := &instincts[idx]
		if inst.TenantID == nil {
			// Global defaults are shared; sweeping them per tenant would
			// double-apply decay.
			continue
		}

		decayed := Decay(inst, now)
		if math.Abs(decayed-inst.Confidence) <= DecayPersistDeadBand {
			skipped++
			continue
		}

		if err := s.store.PersistDecay(ctx, inst.ID, tenantID, decayed); err != nil {
			s.logger.Warn("failed to persist decayed confidence",
				zap.String("instinct_id", inst.ID.String()),
				zap.Error(err))
			continue
		}
		persisted++
	}

	return persisted, skipped, nil
}
