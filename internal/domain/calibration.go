package domain

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is one append-only entry in the calibration log: what the engine
// predicted versus what actually happened.
type Outcome struct {
	ID                  uuid.UUID `json:"id"`
	TenantID            uuid.UUID `json:"tenant_id"`
	InstinctID          uuid.UUID `json:"instinct_id"`
	PredictedConfidence float64   `json:"predicted_confidence"`
	Success             bool      `json:"success"`
	CreatedAt           time.Time `json:"created_at"`
}

// CalibrationBinWidth partitions [0,1) into five buckets with lower bounds
// 0.0, 0.2, 0.4, 0.6, 0.8.
const CalibrationBinWidth = 0.2

// CalibrationBin aggregates outcomes whose predicted confidence fell in one
// bucket. Bins are derived from the outcome log, never persisted as truth.
type CalibrationBin struct {
	LowerBound   float64 `json:"lower_bound"`
	Total        int     `json:"total"`
	Correct      int     `json:"correct"`
	SumPredicted float64 `json:"-"`
}

func (b *CalibrationBin) ActualRate() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Correct) / float64(b.Total)
}

func (b *CalibrationBin) MeanPredicted() float64 {
	if b.Total == 0 {
		return 0
	}
	return b.SumPredicted / float64(b.Total)
}

// CalibrationBinFor returns the lower bound of the bucket containing p.
// Bounds are exact literals so they are usable as map keys; computing them
// arithmetically would put 0.6 one ulp off and split the bucket.
func CalibrationBinFor(p float64) float64 {
	switch {
	case p < 0.2:
		return 0.0
	case p < 0.4:
		return 0.2
	case p < 0.6:
		return 0.4
	case p < 0.8:
		return 0.6
	default:
		return 0.8
	}
}
