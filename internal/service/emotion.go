package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/store"
	"go.uber.org/zap"
)

var (
	ErrInvalidEmotion          = errors.New("invalid emotional state")
	ErrInvalidSignalConfidence = errors.New("signal confidence must be between 0 and 1")
)

const (
	// EmotionSmoothingAlpha blends confidence on an accepted state change.
	EmotionSmoothingAlpha = 0.3
	// EmotionRejectedDecay shrinks confidence when a detection is rejected
	// by the transition graph; trust in the label decays instead of the
	// state whiplashing.
	EmotionRejectedDecay = 0.7
	// EmotionReinforceBoost is added when the same state is detected again.
	EmotionReinforceBoost = 0.1
	// EmotionDirectiveFloor suppresses directives from low-confidence
	// states entirely.
	EmotionDirectiveFloor = 0.6

	emotionInitialConfidence = 0.5
)

// emotionDirectives maps each non-neutral state to the adjustment it feeds
// into the context pipeline.
var emotionDirectives = map[domain.Emotion]string{
	domain.EmotionEngaged:     "maintain the current depth and momentum",
	domain.EmotionConfused:    "slow down, define terms, and walk through a concrete example",
	domain.EmotionFrustrated:  "acknowledge the difficulty, simplify the approach, and offer a working fallback",
	domain.EmotionSatisfied:   "keep the current approach; do not change course",
	domain.EmotionOverwhelmed: "reduce scope and present one step at a time",
	domain.EmotionCurious:     "offer deeper background and related directions to explore",
	domain.EmotionUrgent:      "lead with the answer and defer explanations",
}

// EmotionService classifies the tenant's affective state from labeled
// signals with transition smoothing. Detection itself happens upstream; the
// service only consumes labels.
type EmotionService struct {
	emotions domain.EmotionStore
	logger   *zap.Logger
}

func NewEmotionService(emotions domain.EmotionStore, logger *zap.Logger) *EmotionService {
	return &EmotionService{emotions: emotions, logger: logger}
}

// Current returns the tracked state, defaulting to neutral for tenants with
// no history yet.
func (s *EmotionService) Current(ctx context.Context, tenantID uuid.UUID) (*domain.EmotionalState, error) {
	st, err := s.emotions.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &domain.EmotionalState{
				TenantID:   tenantID,
				State:      domain.EmotionNeutral,
				Confidence: emotionInitialConfidence,
			}, nil
		}
		return nil, err
	}
	return st, nil
}

// Observe runs the transition machine on one labeled signal and persists
// the result. Returns the new state and whether the detection was accepted.
func (s *EmotionService) Observe(ctx context.Context, tenantID uuid.UUID, signal domain.EmotionSignal) (*domain.EmotionalState, bool, error) {
	if !domain.ValidEmotion(string(signal.State)) {
		return nil, false, ErrInvalidEmotion
	}
	if signal.Confidence < 0 || signal.Confidence > 1 {
		return nil, false, ErrInvalidSignalConfidence
	}

	st, err := s.Current(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}

	accepted := true
	switch {
	case signal.State == st.State:
		st.Confidence = math.Min(1, st.Confidence+EmotionReinforceBoost)
	case domain.TransitionAllowed(st.State, signal.State):
		st.State = signal.State
		st.Confidence = EmotionSmoothingAlpha + st.Confidence*(1-EmotionSmoothingAlpha)
	default:
		// Not adjacent in the transition graph: keep the previous state
		// and decay trust in the label.
		accepted = false
		st.Confidence *= EmotionRejectedDecay
	}

	now := time.Now()
	st.History = append(st.History, domain.EmotionSnapshot{
		State:      st.State,
		Confidence: st.Confidence,
		At:         now,
	})
	if len(st.History) > domain.EmotionHistoryCap {
		st.History = st.History[len(st.History)-domain.EmotionHistoryCap:]
	}

	if err := s.emotions.Upsert(ctx, st); err != nil {
		return nil, false, err
	}

	if !accepted {
		s.logger.Debug("emotional transition rejected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("current", string(st.State)),
			zap.String("detected", string(signal.State)),
			zap.Float64("confidence", st.Confidence))
	}

	return st, accepted, nil
}

// Directive synthesizes the emotional_state entry for the context pipeline,
// or reports false when the state is neutral or below the confidence floor.
func (s *EmotionService) Directive(ctx context.Context, tenantID uuid.UUID) (*domain.ScoredInstinct, bool, error) {
	st, err := s.Current(ctx, tenantID)
	if err != nil {
		return nil, false, err
	}
	if st.Confidence < EmotionDirectiveFloor {
		return nil, false, nil
	}
	action, ok := emotionDirectives[st.State]
	if !ok {
		return nil, false, nil
	}

	tid := tenantID
	scored := &domain.ScoredInstinct{
		Instinct: domain.Instinct{
			TenantID:   &tid,
			Domain:     domain.DomainEmotionalState,
			Trigger:    "user currently appears " + string(st.State),
			Action:     action,
			Confidence: st.Confidence,
			Source:     domain.SourceObserved,
			CreatedAt:  st.UpdatedAt,
			UpdatedAt:  st.UpdatedAt,
		},
		Final: st.Confidence,
		Score: domain.ScoreBreakdown{
			Decayed:           st.Confidence,
			SuccessMultiplier: 1,
		},
	}
	return scored, true, nil
}
