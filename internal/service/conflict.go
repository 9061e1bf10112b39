package service

import (
	"sort"
	"strings"

	"github.com/instinctd/instinctd/internal/domain"
)

// ConflictResolver removes instincts overridden by higher-priority ones per
// a shared rule table. Candidates are processed in descending final
// confidence (ties: earlier creation, then id) and only already-kept
// entries can suppress later ones, so the result is deterministic for any
// input ordering.
type ConflictResolver struct {
	rules []domain.ConflictRule
}

func NewConflictResolver(rules []domain.ConflictRule) *ConflictResolver {
	if rules == nil {
		rules = domain.DefaultConflictRules
	}
	return &ConflictResolver{rules: rules}
}

func (r *ConflictResolver) Resolve(scored []domain.ScoredInstinct) []domain.ScoredInstinct {
	ordered := make([]domain.ScoredInstinct, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].Final != ordered[b].Final {
			return ordered[a].Final > ordered[b].Final
		}
		if !ordered[a].CreatedAt.Equal(ordered[b].CreatedAt) {
			return ordered[a].CreatedAt.Before(ordered[b].CreatedAt)
		}
		return ordered[a].ID.String() < ordered[b].ID.String()
	})

	kept := make([]domain.ScoredInstinct, 0, len(ordered))
	for _, candidate := range ordered {
		suppressed := false
		for _, keeper := range kept {
			if r.overrides(&keeper, &candidate) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// overrides reports whether keeper suppresses candidate under any rule:
// the keeper must match the rule's overriding domain and action pattern at
// sufficient confidence, and the candidate must match one of the rule's
// overridden pairs.
func (r *ConflictResolver) overrides(keeper, candidate *domain.ScoredInstinct) bool {
	for _, rule := range r.rules {
		if keeper.Domain != rule.OverridingDomain {
			continue
		}
		if !containsFold(keeper.Action, rule.OverridingActionPattern) {
			continue
		}
		if keeper.Final < rule.MinOverridingConfidence {
			continue
		}
		for _, target := range rule.Overrides {
			if candidate.Domain == target.Domain && containsFold(candidate.Action, target.ActionPattern) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
