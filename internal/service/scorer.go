package service

import (
	"math"
	"time"

	"github.com/instinctd/instinctd/internal/domain"
)

const (
	FrequencyBoostPerOccurrence  = 0.03
	FrequencyBoostCap            = 0.15
	FrequencyBoostMinOccurrences = 5

	StalenessPenaltyPerDay    = 0.01
	StalenessPenaltyFloor     = -0.2
	StalenessPenaltyNoTrigger = -0.1

	SuccessMultiplierFloor = 0.8
)

// Score combines decay, frequency, staleness, and success-rate signals into
// the final ranking confidence. The stored confidence is never mutated; the
// component values are kept on the result so callers and tests can see
// exactly where a score came from.
func Score(i *domain.Instinct, now time.Time) domain.ScoredInstinct {
	decayed := Decay(i, now)

	var frequencyBoost float64
	if i.OccurrenceCount >= FrequencyBoostMinOccurrences {
		frequencyBoost = math.Min(FrequencyBoostCap, float64(i.OccurrenceCount)*FrequencyBoostPerOccurrence)
	}

	stalenessPenalty := StalenessPenaltyNoTrigger
	if i.LastTriggeredAt != nil {
		daysSince := now.Sub(*i.LastTriggeredAt).Hours() / 24
		if daysSince < 0 {
			daysSince = 0
		}
		stalenessPenalty = math.Max(StalenessPenaltyFloor, -daysSince*StalenessPenaltyPerDay)
	}

	// Never drag a confident instinct below 80% of its value: sparse
	// feedback must not over-punish.
	successMultiplier := math.Max(SuccessMultiplierFloor, i.SuccessRate)

	final := domain.ClampConfidence((decayed + frequencyBoost + stalenessPenalty) * successMultiplier)

	return domain.ScoredInstinct{
		Instinct: *i,
		Final:    final,
		Score: domain.ScoreBreakdown{
			Decayed:           decayed,
			FrequencyBoost:    frequencyBoost,
			StalenessPenalty:  stalenessPenalty,
			SuccessMultiplier: successMultiplier,
		},
	}
}
