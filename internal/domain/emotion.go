package domain

import (
	"time"

	"github.com/google/uuid"
)

// Emotion is the closed set of affective states tracked per tenant.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionEngaged     Emotion = "engaged"
	EmotionConfused    Emotion = "confused"
	EmotionFrustrated  Emotion = "frustrated"
	EmotionSatisfied   Emotion = "satisfied"
	EmotionOverwhelmed Emotion = "overwhelmed"
	EmotionCurious     Emotion = "curious"
	EmotionUrgent      Emotion = "urgent"
)

func ValidEmotion(e string) bool {
	switch Emotion(e) {
	case EmotionNeutral, EmotionEngaged, EmotionConfused, EmotionFrustrated,
		EmotionSatisfied, EmotionOverwhelmed, EmotionCurious, EmotionUrgent:
		return true
	}
	return false
}

// emotionTransitions is the allowed-transition graph. A detected state not
// adjacent to the current one is rejected by the tracker rather than
// whiplashing the state. Same-state is always a reinforcement, not a
// transition, so it is not listed.
var emotionTransitions = map[Emotion][]Emotion{
	EmotionNeutral:     {EmotionEngaged, EmotionConfused, EmotionFrustrated, EmotionSatisfied, EmotionOverwhelmed, EmotionCurious, EmotionUrgent},
	EmotionEngaged:     {EmotionNeutral, EmotionSatisfied, EmotionCurious, EmotionConfused, EmotionUrgent},
	EmotionConfused:    {EmotionNeutral, EmotionEngaged, EmotionFrustrated, EmotionOverwhelmed, EmotionCurious},
	EmotionFrustrated:  {EmotionNeutral, EmotionConfused, EmotionOverwhelmed, EmotionSatisfied},
	EmotionSatisfied:   {EmotionNeutral, EmotionEngaged, EmotionCurious},
	EmotionOverwhelmed: {EmotionNeutral, EmotionFrustrated, EmotionConfused},
	EmotionCurious:     {EmotionNeutral, EmotionEngaged, EmotionConfused, EmotionSatisfied},
	EmotionUrgent:      {EmotionNeutral, EmotionFrustrated, EmotionSatisfied, EmotionOverwhelmed},
}

// TransitionAllowed reports whether the tracker may move from one state to
// another. Same-state reinforcement is always allowed.
func TransitionAllowed(from, to Emotion) bool {
	if from == to {
		return true
	}
	for _, next := range emotionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EmotionSnapshot is one history entry kept for diagnostics.
type EmotionSnapshot struct {
	State      Emotion   `json:"state"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// EmotionHistoryCap bounds the retained history.
const EmotionHistoryCap = 10

// EmotionalState is the current affective state of one tenant.
type EmotionalState struct {
	TenantID   uuid.UUID         `json:"tenant_id"`
	State      Emotion           `json:"state"`
	Confidence float64           `json:"confidence"`
	History    []EmotionSnapshot `json:"history,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// EmotionSignal is a labeled detection delivered by the upstream classifier.
// The engine consumes labels; it never inspects message text itself.
type EmotionSignal struct {
	State      Emotion `json:"state"`
	Confidence float64 `json:"confidence"`
}
