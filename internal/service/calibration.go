package service

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"go.uber.org/zap"
)

const (
	// CalibrationRecomputeEvery triggers a recompute after this many
	// recorded outcomes for a tenant.
	CalibrationRecomputeEvery = 50
	// CalibrationMinBinSamples is the minimum sample count before a bucket
	// is trusted enough to correct.
	CalibrationMinBinSamples = 5
	// CalibrationTolerance is how far observed accuracy may drift from
	// predicted confidence before a bucket is considered miscalibrated.
	CalibrationTolerance = 0.1
	// CalibrationNudge is the one-time confidence correction applied to
	// instincts in a miscalibrated bucket.
	CalibrationNudge = 0.1
	// calibrationLogWindow bounds how much of the outcome log one
	// recompute reads.
	calibrationLogWindow = 500
)

// CalibrationAdjustment is the correction applied to one confidence bucket,
// identified by its lower bound.
type CalibrationAdjustment struct {
	LowerBound float64 `json:"lower_bound"`
	Adjustment float64 `json:"adjustment"`
}

type CalibrationResult struct {
	OutcomesExamined  int                     `json:"outcomes_examined"`
	Bins              []domain.CalibrationBin `json:"bins"`
	Adjustments       []CalibrationAdjustment `json:"adjustments"`
	InstinctsAdjusted int                     `json:"instincts_adjusted"`
}

// CalibrationService tracks predicted-confidence versus observed-outcome
// pairs and periodically nudges systematically over- or under-confident
// instincts. Recalibration is a batch correction, not a change to the
// scoring function.
type CalibrationService struct {
	outcomes  domain.OutcomeStore
	instincts domain.InstinctStore
	locks     *tenantLocks
	logger    *zap.Logger
}

func NewCalibrationService(outcomes domain.OutcomeStore, instincts domain.InstinctStore, locks *tenantLocks, logger *zap.Logger) *CalibrationService {
	return &CalibrationService{outcomes: outcomes, instincts: instincts, locks: locks, logger: logger}
}

// computeBins buckets outcomes by predicted confidence into 0.2-wide bins.
func computeBins(outcomes []domain.Outcome) []domain.CalibrationBin {
	byBound := make(map[float64]*domain.CalibrationBin)
	for _, o := range outcomes {
		bound := domain.CalibrationBinFor(o.PredictedConfidence)
		bin, ok := byBound[bound]
		if !ok {
			bin = &domain.CalibrationBin{LowerBound: bound}
			byBound[bound] = bin
		}
		bin.Total++
		bin.SumPredicted += o.PredictedConfidence
		if o.Success {
			bin.Correct++
		}
	}

	bins := make([]domain.CalibrationBin, 0, len(byBound))
	for _, bin := range byBound {
		bins = append(bins, *bin)
	}
	sort.Slice(bins, func(a, b int) bool { return bins[a].LowerBound < bins[b].LowerBound })
	return bins
}

// binAdjustments derives the per-bucket corrections: a bucket whose
// observed success rate undershoots its mean prediction by more than the
// tolerance is overconfident (nudge down), overshoot means underconfident
// (nudge up). Sparse buckets are left alone.
func binAdjustments(bins []domain.CalibrationBin) map[float64]float64 {
	adjustments := make(map[float64]float64)
	for _, bin := range bins {
		if bin.Total < CalibrationMinBinSamples {
			continue
		}
		actual := bin.ActualRate()
		predicted := bin.MeanPredicted()
		switch {
		case actual < predicted-CalibrationTolerance:
			adjustments[bin.LowerBound] = -CalibrationNudge
		case actual > predicted+CalibrationTolerance:
			adjustments[bin.LowerBound] = CalibrationNudge
		}
	}
	return adjustments
}

// adjustmentList flattens the adjustment map into a bound-ordered slice for
// the response body.
func adjustmentList(adjustments map[float64]float64) []CalibrationAdjustment {
	bounds := make([]float64, 0, len(adjustments))
	for bound := range adjustments {
		bounds = append(bounds, bound)
	}
	sort.Float64s(bounds)

	out := make([]CalibrationAdjustment, 0, len(bounds))
	for _, bound := range bounds {
		out = append(out, CalibrationAdjustment{LowerBound: bound, Adjustment: adjustments[bound]})
	}
	return out
}

// MaybeRecalibrate runs a recompute when the tenant's outcome count hits a
// multiple of CalibrationRecomputeEvery.
func (s *CalibrationService) MaybeRecalibrate(ctx context.Context, tenantID uuid.UUID) {
	count, err := s.outcomes.CountByTenant(ctx, tenantID)
	if err != nil {
		s.logger.Warn("failed to count outcomes", zap.String("tenant_id", tenantID.String()), zap.Error(err))
		return
	}
	if count == 0 || count%CalibrationRecomputeEvery != 0 {
		return
	}
	if _, err := s.Recalibrate(ctx, tenantID); err != nil {
		s.logger.Error("recalibration failed", zap.String("tenant_id", tenantID.String()), zap.Error(err))
	}
}

// Recalibrate recomputes the bins from the outcome log and applies the
// derived nudges to currently stored instincts whose confidence falls in a
// corrected bucket. Idempotent per log state and safe to retry wholesale.
func (s *CalibrationService) Recalibrate(ctx context.Context, tenantID uuid.UUID) (*CalibrationResult, error) {
	unlock := s.locks.Lock(tenantID)
	defer unlock()

	outcomes, err := s.outcomes.ListByTenant(ctx, tenantID, calibrationLogWindow)
	if err != nil {
		return nil, err
	}

	bins := computeBins(outcomes)
	adjustments := binAdjustments(bins)

	result := &CalibrationResult{
		OutcomesExamined: len(outcomes),
		Bins:             bins,
		Adjustments:      adjustmentList(adjustments),
	}

	if len(adjustments) == 0 {
		return result, nil
	}

	instincts, err := s.instincts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for i := range instincts {
		inst := &instincts[i]
		if inst.TenantID == nil || *inst.TenantID != tenantID {
			continue
		}
		adj, ok := adjustments[domain.CalibrationBinFor(inst.Confidence)]
		if !ok {
			continue
		}
		corrected := domain.ClampConfidence(inst.Confidence + adj)
		if corrected == inst.Confidence {
			continue
		}
		if err := s.instincts.UpdateConfidence(ctx, inst.ID, tenantID, corrected); err != nil {
			s.logger.Warn("failed to apply calibration nudge",
				zap.String("instinct_id", inst.ID.String()),
				zap.Error(err))
			continue
		}
		result.InstinctsAdjusted++
	}

	s.logger.Info("calibration complete for tenant",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("outcomes_examined", result.OutcomesExamined),
		zap.Int("buckets_corrected", len(adjustments)),
		zap.Int("instincts_adjusted", result.InstinctsAdjusted))

	return result, nil
}
