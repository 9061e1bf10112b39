package service

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
)

func TestScoreStalenessPenalty(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name             string
		lastTriggeredAgo float64
		noTrigger        bool
		want             float64
	}{
		{"never triggered gets flat penalty", 0, true, -0.1},
		{"just triggered has no penalty", 0, false, 0},
		{"ten days idle costs exactly 0.1", 10, false, -0.1},
		{"twenty days idle costs 0.2", 20, false, -0.2},
		{"penalty floors at 0.2", 90, false, -0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := &domain.Instinct{
				ID:          uuid.New(),
				Confidence:  0.8,
				SuccessRate: 0.5,
				CreatedAt:   now,
			}
			if !tt.noTrigger {
				triggered := daysAgo(now, tt.lastTriggeredAgo)
				inst.LastTriggeredAt = &triggered
			}

			got := Score(inst, now).Score.StalenessPenalty
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("StalenessPenalty = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreFrequencyBoost(t *testing.T) {
	now := time.Now()

	tests := []struct {
		occurrenceCount int
		want            float64
	}{
		{0, 0},
		{4, 0},
		{5, 0.15},
		{6, 0.15},
		{20, 0.15},
	}

	for _, tt := range tests {
		inst := &domain.Instinct{
			ID:              uuid.New(),
			Confidence:      0.7,
			SuccessRate:     0.5,
			OccurrenceCount: tt.occurrenceCount,
			CreatedAt:       now,
		}
		got := Score(inst, now).Score.FrequencyBoost
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FrequencyBoost at %d occurrences = %v, want %v", tt.occurrenceCount, got, tt.want)
		}
	}
}

func TestScoreSuccessMultiplierFloor(t *testing.T) {
	now := time.Now()

	tests := []struct {
		successRate float64
		want        float64
	}{
		{0, 0.8},
		{0.5, 0.8},
		{0.8, 0.8},
		{0.95, 0.95},
		{1, 1},
	}

	for _, tt := range tests {
		inst := &domain.Instinct{
			ID:          uuid.New(),
			Confidence:  0.7,
			SuccessRate: tt.successRate,
			CreatedAt:   now,
		}
		got := Score(inst, now).Score.SuccessMultiplier
		if got != tt.want {
			t.Errorf("SuccessMultiplier at rate %v = %v, want %v", tt.successRate, got, tt.want)
		}
	}
}

func TestScoreComposite(t *testing.T) {
	now := time.Now()
	triggered := now

	// Exempt from decay, full frequency boost, no staleness, floored
	// multiplier: (0.8 + 0.15 + 0) * 0.8 = 0.76.
	inst := &domain.Instinct{
		ID:              uuid.New(),
		Confidence:      0.8,
		SuccessRate:     0.5,
		OccurrenceCount: 5,
		CreatedAt:       daysAgo(now, 60),
		LastTriggeredAt: &triggered,
	}

	scored := Score(inst, now)
	if math.Abs(scored.Final-0.76) > 1e-9 {
		t.Errorf("Final = %v, want 0.76", scored.Final)
	}
	if scored.Confidence != 0.8 {
		t.Errorf("stored confidence mutated to %v", scored.Confidence)
	}
}

func TestScoreFinalClamped(t *testing.T) {
	now := time.Now()

	// Everything pushing down: stale, never triggered, low confidence.
	low := &domain.Instinct{ID: uuid.New(), Confidence: 0.05, SuccessRate: 0, CreatedAt: now}
	if got := Score(low, now).Final; got < 0 {
		t.Errorf("Final = %v, want >= 0", got)
	}

	triggered := now
	high := &domain.Instinct{
		ID:              uuid.New(),
		Confidence:      1,
		SuccessRate:     1,
		OccurrenceCount: 20,
		CreatedAt:       now,
		LastTriggeredAt: &triggered,
	}
	if got := Score(high, now).Final; got > 1 {
		t.Errorf("Final = %v, want <= 1", got)
	}
}
