package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"go.uber.org/zap"
)

const (
	// DefaultMinConfidence drops weak entries before conflict resolution.
	DefaultMinConfidence = 0.5

	// Adaptive per-domain caps keyed on the mean final score of the
	// surviving set: a confident set earns more directives per domain.
	adaptiveCapHigh = 5
	adaptiveCapMid  = 3
	adaptiveCapLow  = 1

	adaptiveMeanHigh = 0.8
	adaptiveMeanMid  = 0.6
)

// BuildOpts tunes one context build. Zero values mean defaults: confidence
// floor 0.5 and adaptive per-domain capping.
type BuildOpts struct {
	Message       string
	MinConfidence float64
	MaxPerDomain  int
}

// BuildResult is the consumer-facing output: the formatted directive block
// (empty when nothing survives) plus the ranked entries for structured
// access.
type BuildResult struct {
	Prompt    string                  `json:"prompt"`
	Instincts []domain.ScoredInstinct `json:"instincts"`
}

// ContextBuilder orchestrates the scoring pipeline: load, decay, score,
// filter, resolve conflicts, cap per domain, format. Every step past the
// store read is a pure transformation over the in-memory snapshot.
type ContextBuilder struct {
	store    domain.InstinctStore
	resolver *ConflictResolver
	emotions *EmotionService
	logger   *zap.Logger

	now func() time.Time
}

func NewContextBuilder(store domain.InstinctStore, resolver *ConflictResolver, emotions *EmotionService, logger *zap.Logger) *ContextBuilder {
	return &ContextBuilder{
		store:    store,
		resolver: resolver,
		emotions: emotions,
		logger:   logger,
		now:      time.Now,
	}
}

func (b *ContextBuilder) Build(ctx context.Context, tenantID uuid.UUID, opts BuildOpts) (*BuildResult, error) {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	instincts, err := b.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := b.now()

	scored := make([]domain.ScoredInstinct, 0, len(instincts)+1)
	for i := range instincts {
		inst := &instincts[i]
		// A malformed record degrades the block, not the whole build.
		if !domain.ValidInstinctDomain(string(inst.Domain)) || inst.Confidence < 0 || inst.Confidence > 1 {
			b.logger.Warn("skipping malformed instinct",
				zap.String("instinct_id", inst.ID.String()),
				zap.String("domain", string(inst.Domain)))
			continue
		}
		scored = append(scored, Score(inst, now))
	}

	if b.emotions != nil {
		directive, ok, err := b.emotions.Directive(ctx, tenantID)
		if err != nil {
			b.logger.Warn("emotional directive unavailable",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if ok {
			scored = append(scored, *directive)
		}
	}

	filtered := scored[:0]
	for _, s := range scored {
		if s.Final >= minConfidence {
			filtered = append(filtered, s)
		}
	}

	surviving := b.resolver.Resolve(filtered)

	perDomain := opts.MaxPerDomain
	if perDomain <= 0 {
		perDomain = AdaptiveCap(meanFinal(surviving))
	}
	surviving = capPerDomain(surviving, perDomain)

	sort.SliceStable(surviving, func(a, c int) bool {
		if surviving[a].Final != surviving[c].Final {
			return surviving[a].Final > surviving[c].Final
		}
		return surviving[a].CreatedAt.Before(surviving[c].CreatedAt)
	})

	return &BuildResult{
		Prompt:    formatDirectives(surviving),
		Instincts: surviving,
	}, nil
}

// AdaptiveCap selects the per-domain cap from the mean final score of the
// surviving set.
func AdaptiveCap(mean float64) int {
	switch {
	case mean > adaptiveMeanHigh:
		return adaptiveCapHigh
	case mean > adaptiveMeanMid:
		return adaptiveCapMid
	default:
		return adaptiveCapLow
	}
}

func meanFinal(scored []domain.ScoredInstinct) float64 {
	if len(scored) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range scored {
		sum += s.Final
	}
	return sum / float64(len(scored))
}

// capPerDomain keeps the highest-final entries per domain. Resolve already
// ordered the input by descending final.
func capPerDomain(scored []domain.ScoredInstinct, max int) []domain.ScoredInstinct {
	counts := make(map[domain.InstinctDomain]int)
	kept := scored[:0]
	for _, s := range scored {
		if counts[s.Domain] >= max {
			continue
		}
		counts[s.Domain]++
		kept = append(kept, s)
	}
	return kept
}

// formatDirectives renders the directive block grouped by domain. Empty
// string when nothing survives.
func formatDirectives(scored []domain.ScoredInstinct) string {
	if len(scored) == 0 {
		return ""
	}

	byDomain := make(map[domain.InstinctDomain][]domain.ScoredInstinct)
	for _, s := range scored {
		byDomain[s.Domain] = append(byDomain[s.Domain], s)
	}

	var sb strings.Builder
	sb.WriteString("# Learned instincts\n")
	for _, d := range domain.AllDomains {
		entries, ok := byDomain[d]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n", d)
		for _, e := range entries {
			fmt.Fprintf(&sb, "- %s (when: %s) [%.2f]\n", e.Action, e.Trigger, e.Final)
		}
	}
	return sb.String()
}
