package service

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"go.uber.org/zap"
)

const (
	// SimilarityThreshold is the minimum Jaccard index for two instincts to
	// be considered near-duplicates.
	SimilarityThreshold = 0.8
	// MergeAbsorbFactor scales how much of an absorbed record's confidence
	// the survivor gains.
	MergeAbsorbFactor = 0.3
)

func tokenSet(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Similarity is the Jaccard index over the case-insensitive word sets of
// trigger and action text. Symmetric; 0 when either side is empty.
func Similarity(a, b *domain.Instinct) float64 {
	as := tokenSet(a.Trigger + " " + a.Action)
	bs := tokenSet(b.Trigger + " " + b.Action)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	intersection := 0
	for w := range as {
		if _, ok := bs[w]; ok {
			intersection++
		}
	}
	union := len(as) + len(bs) - intersection
	return float64(intersection) / float64(union)
}

// findClusters greedily groups near-duplicates: each unclustered instinct
// seeds a cluster of everything within the threshold. Quadratic, which is
// fine for per-tenant counts; this never runs on the scoring hot path.
// Singleton clusters are discarded.
func findClusters(instincts []domain.Instinct, threshold float64) [][]domain.Instinct {
	var clusters [][]domain.Instinct
	clustered := make(map[uuid.UUID]bool, len(instincts))

	for i := range instincts {
		seed := &instincts[i]
		if clustered[seed.ID] {
			continue
		}
		cluster := []domain.Instinct{*seed}
		clustered[seed.ID] = true

		for j := i + 1; j < len(instincts); j++ {
			other := &instincts[j]
			if clustered[other.ID] {
				continue
			}
			if Similarity(seed, other) >= threshold {
				cluster = append(cluster, *other)
				clustered[other.ID] = true
			}
		}

		if len(cluster) > 1 {
			clusters = append(clusters, cluster)
		}
	}
	return clusters
}

type MergeResult struct {
	ClustersMerged    int `json:"clusters_merged"`
	InstinctsAbsorbed int `json:"instincts_absorbed"`
}

// SimilarityService finds and collapses near-duplicate instincts. Explicit
// maintenance operation, operator- or schedule-invoked.
type SimilarityService struct {
	store  domain.InstinctStore
	locks  *tenantLocks
	logger *zap.Logger
}

func NewSimilarityService(store domain.InstinctStore, locks *tenantLocks, logger *zap.Logger) *SimilarityService {
	return &SimilarityService{store: store, locks: locks, logger: logger}
}

// FindClusters returns the near-duplicate groups for a tenant. Global
// default records are excluded; a tenant must not be able to merge away
// shared presets.
func (s *SimilarityService) FindClusters(ctx context.Context, tenantID uuid.UUID, threshold float64) ([][]domain.Instinct, error) {
	if threshold <= 0 {
		threshold = SimilarityThreshold
	}
	owned, err := s.listOwned(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return findClusters(owned, threshold), nil
}

// MergeSimilar collapses every cluster: the member with the highest final
// score survives, gains MergeAbsorbFactor of each absorbed confidence, and
// takes the summed occurrence count. Absorbed records are deleted in the
// same transaction.
func (s *SimilarityService) MergeSimilar(ctx context.Context, tenantID uuid.UUID, threshold float64) (*MergeResult, error) {
	if threshold <= 0 {
		threshold = SimilarityThreshold
	}

	unlock := s.locks.Lock(tenantID)
	defer unlock()

	owned, err := s.listOwned(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &MergeResult{}

	for _, cluster := range findClusters(owned, threshold) {
		survivor, rest := pickSurvivor(cluster, now)

		confidence := survivor.Confidence
		occurrences := survivor.OccurrenceCount
		absorbed := make([]uuid.UUID, 0, len(rest))
		for i := range rest {
			confidence += MergeAbsorbFactor * rest[i].Confidence
			occurrences += rest[i].OccurrenceCount
			absorbed = append(absorbed, rest[i].ID)
		}
		confidence = domain.ClampConfidence(confidence)

		if err := s.store.AbsorbMerge(ctx, tenantID, survivor.ID, confidence, occurrences, absorbed); err != nil {
			s.logger.Warn("failed to merge cluster",
				zap.String("survivor_id", survivor.ID.String()),
				zap.Error(err))
			continue
		}

		result.ClustersMerged++
		result.InstinctsAbsorbed += len(absorbed)
	}

	if result.ClustersMerged > 0 {
		s.logger.Info("merge complete for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("clusters_merged", result.ClustersMerged),
			zap.Int("instincts_absorbed", result.InstinctsAbsorbed))
	}

	return result, nil
}

func (s *SimilarityService) listOwned(ctx context.Context, tenantID uuid.UUID) ([]domain.Instinct, error) {
	all, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	owned := all[:0]
	for _, i := range all {
		if i.TenantID != nil && *i.TenantID == tenantID {
			owned = append(owned, i)
		}
	}
	return owned, nil
}

// pickSurvivor orders the cluster by final score (ties: earlier creation)
// and returns the winner plus the rest.
func pickSurvivor(cluster []domain.Instinct, now time.Time) (domain.Instinct, []domain.Instinct) {
	sorted := make([]domain.Instinct, len(cluster))
	copy(sorted, cluster)
	sort.SliceStable(sorted, func(a, b int) bool {
		fa, fb := Score(&sorted[a], now).Final, Score(&sorted[b], now).Final
		if fa != fb {
			return fa > fb
		}
		return sorted[a].CreatedAt.Before(sorted[b].CreatedAt)
	})
	return sorted[0], sorted[1:]
}
