package domain

import (
	"time"

	"github.com/google/uuid"
)

// InstinctDomain is the closed set of directive categories. Adding a domain
// is a deploy-time change, never a runtime string.
type InstinctDomain string

const (
	DomainCommunication  InstinctDomain = "communication"
	DomainFormat         InstinctDomain = "format"
	DomainWorkflow       InstinctDomain = "workflow"
	DomainToolSelection  InstinctDomain = "tool_selection"
	DomainVerification   InstinctDomain = "verification"
	DomainTiming         InstinctDomain = "timing"
	DomainEmotionalState InstinctDomain = "emotional_state"
	DomainLearningStyle  InstinctDomain = "learning_style"
	DomainExpertise      InstinctDomain = "expertise"
)

// AllDomains lists domains in presentation order for the directive block.
var AllDomains = []InstinctDomain{
	DomainCommunication,
	DomainFormat,
	DomainWorkflow,
	DomainToolSelection,
	DomainVerification,
	DomainTiming,
	DomainEmotionalState,
	DomainLearningStyle,
	DomainExpertise,
}

func ValidInstinctDomain(d string) bool {
	switch InstinctDomain(d) {
	case DomainCommunication, DomainFormat, DomainWorkflow, DomainToolSelection,
		DomainVerification, DomainTiming, DomainEmotionalState, DomainLearningStyle, DomainExpertise:
		return true
	}
	return false
}

// Source records how an instinct entered the system. It controls the trust
// placed in an observation (initial confidence), not the scoring math.
type Source string

const (
	SourceObserved     Source = "observed"
	SourceExplicit     Source = "explicit"
	SourceImported     Source = "imported"
	SourcePreset       Source = "preset"
	SourcePatternMerge Source = "pattern-merge"
)

func ValidSource(s string) bool {
	switch Source(s) {
	case SourceObserved, SourceExplicit, SourceImported, SourcePreset, SourcePatternMerge:
		return true
	}
	return false
}

func (s Source) InitialConfidence() float64 {
	switch s {
	case SourceExplicit:
		return 0.9
	case SourceObserved:
		return 0.7
	case SourcePatternMerge:
		return 0.65
	case SourceImported, SourcePreset:
		return 0.6
	default:
		return 0.5
	}
}

// Instinct is a stored behavioral directive scoped to one tenant.
// A nil TenantID marks a shared global default readable by every tenant.
type Instinct struct {
	ID              uuid.UUID      `json:"id"`
	TenantID        *uuid.UUID     `json:"tenant_id,omitempty"`
	Domain          InstinctDomain `json:"domain"`
	Trigger         string         `json:"trigger"`
	Action          string         `json:"action"`
	Confidence      float64        `json:"confidence"`
	Source          Source         `json:"source"`
	OccurrenceCount int            `json:"occurrence_count"`
	SuccessRate     float64        `json:"success_rate"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at,omitempty"`
	DecayedAt       *time.Time     `json:"decayed_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DecayReference is the timestamp decay ages against: the most recent of
// creation, the last reinforcement, and the last persisted decay sweep.
// Without the sweep anchor a persisted value would be decayed again from the
// original reference and the curve would compound.
func (i *Instinct) DecayReference() time.Time {
	ref := i.CreatedAt
	if i.LastTriggeredAt != nil && i.LastTriggeredAt.After(ref) {
		ref = *i.LastTriggeredAt
	}
	if i.DecayedAt != nil && i.DecayedAt.After(ref) {
		ref = *i.DecayedAt
	}
	return ref
}

// ScoreBreakdown exposes the individual scoring signals alongside the final
// value so callers and tests never have to reverse-engineer the composite.
type ScoreBreakdown struct {
	Decayed           float64 `json:"decayed"`
	FrequencyBoost    float64 `json:"frequency_boost"`
	StalenessPenalty  float64 `json:"staleness_penalty"`
	SuccessMultiplier float64 `json:"success_multiplier"`
}

// ScoredInstinct is an instinct with its read-time ranking score attached.
type ScoredInstinct struct {
	Instinct
	Final float64        `json:"final"`
	Score ScoreBreakdown `json:"score"`
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
