package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
	"github.com/instinctd/instinctd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSimilarity(t *testing.T) {
	a := &domain.Instinct{Trigger: "user asks for a quick summary", Action: "keep responses brief and concise"}
	b := &domain.Instinct{Trigger: "user asks for a quick summary", Action: "keep responses brief and concise please"}
	c := &domain.Instinct{Trigger: "user pastes a stack trace", Action: "ask for the full error output"}

	assert.Equal(t, 1.0, Similarity(a, a), "identical text")
	assert.Equal(t, Similarity(a, b), Similarity(b, a), "symmetric")
	assert.GreaterOrEqual(t, Similarity(a, b), SimilarityThreshold, "near-duplicates clear the threshold")
	assert.Less(t, Similarity(a, c), 0.2, "unrelated text")
	assert.Equal(t, 0.0, Similarity(a, &domain.Instinct{}), "empty side scores zero")

	// Tokenization ignores case and punctuation.
	d := &domain.Instinct{Trigger: "User asks for a QUICK summary!", Action: "Keep responses brief, and concise."}
	assert.Equal(t, 1.0, Similarity(a, d))
}

func TestFindClustersPartition(t *testing.T) {
	now := time.Now()
	mk := func(action string) domain.Instinct {
		return domain.Instinct{
			ID:        uuid.New(),
			Trigger:   "user asks for a quick summary",
			Action:    action,
			CreatedAt: now,
		}
	}

	instincts := []domain.Instinct{
		mk("keep responses brief and concise"),
		mk("keep responses brief and concise please"),
		mk("keep replies brief and concise"),
		{ID: uuid.New(), Trigger: "user pastes a stack trace", Action: "ask for the full error output", CreatedAt: now},
	}

	clusters := findClusters(instincts, SimilarityThreshold)
	require.Len(t, clusters, 1, "singletons are discarded")
	assert.Len(t, clusters[0], 3)

	seen := make(map[uuid.UUID]bool)
	for _, cluster := range clusters {
		for _, member := range cluster {
			assert.False(t, seen[member.ID], "instinct appears in two clusters")
			seen[member.ID] = true
		}
	}
}

func TestMergeSimilar(t *testing.T) {
	st := newMockInstinctStore()
	tenantID := uuid.New()
	now := time.Now()

	survivor := &domain.Instinct{
		TenantID:        &tenantID,
		Domain:          domain.DomainCommunication,
		Trigger:         "user asks for a quick summary",
		Action:          "keep responses brief and concise",
		Confidence:      0.6,
		OccurrenceCount: 2,
		SuccessRate:     0.5,
		CreatedAt:       now,
	}
	dupA := &domain.Instinct{
		TenantID:        &tenantID,
		Domain:          domain.DomainCommunication,
		Trigger:         "user asks for a quick summary",
		Action:          "keep responses brief and concise please",
		Confidence:      0.4,
		OccurrenceCount: 3,
		SuccessRate:     0.5,
		CreatedAt:       now,
	}
	dupB := &domain.Instinct{
		TenantID:        &tenantID,
		Domain:          domain.DomainCommunication,
		Trigger:         "user asks for a quick summary",
		Action:          "keep replies brief and concise",
		Confidence:      0.3,
		OccurrenceCount: 4,
		SuccessRate:     0.5,
		CreatedAt:       now,
	}
	unrelated := &domain.Instinct{
		TenantID:   &tenantID,
		Domain:     domain.DomainWorkflow,
		Trigger:    "user pastes a stack trace",
		Action:     "ask for the full error output",
		Confidence: 0.7,
		CreatedAt:  now,
	}
	st.put(survivor)
	st.put(dupA)
	st.put(dupB)
	st.put(unrelated)

	svc := NewSimilarityService(st, NewMaintenanceLocks(), zap.NewNop())

	result, err := svc.MergeSimilar(context.Background(), tenantID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ClustersMerged)
	assert.Equal(t, 2, result.InstinctsAbsorbed)

	merged, err := st.GetByID(context.Background(), survivor.ID, tenantID)
	require.NoError(t, err)
	assert.Equal(t, 9, merged.OccurrenceCount, "occurrence counts are summed")
	assert.InDelta(t, 0.6+MergeAbsorbFactor*(0.4+0.3), merged.Confidence, 1e-9)
	assert.Equal(t, domain.SourcePatternMerge, merged.Source)

	_, err = st.GetByID(context.Background(), dupA.ID, tenantID)
	assert.True(t, errors.Is(err, store.ErrNotFound), "absorbed record must be gone")
	_, err = st.GetByID(context.Background(), dupB.ID, tenantID)
	assert.True(t, errors.Is(err, store.ErrNotFound), "absorbed record must be gone")

	_, err = st.GetByID(context.Background(), unrelated.ID, tenantID)
	assert.NoError(t, err, "unrelated record untouched")
}

func TestMergeSimilarConfidenceClamped(t *testing.T) {
	st := newMockInstinctStore()
	tenantID := uuid.New()
	now := time.Now()

	a := &domain.Instinct{
		TenantID: &tenantID, Domain: domain.DomainCommunication,
		Trigger: "user asks for a quick summary", Action: "keep responses brief and concise",
		Confidence: 0.95, SuccessRate: 0.5, CreatedAt: now,
	}
	b := &domain.Instinct{
		TenantID: &tenantID, Domain: domain.DomainCommunication,
		Trigger: "user asks for a quick summary", Action: "keep responses brief and concise please",
		Confidence: 0.9, SuccessRate: 0.5, CreatedAt: now,
	}
	st.put(a)
	st.put(b)

	svc := NewSimilarityService(st, NewMaintenanceLocks(), zap.NewNop())

	_, err := svc.MergeSimilar(context.Background(), tenantID, 0)
	require.NoError(t, err)

	merged, err := st.GetByID(context.Background(), a.ID, tenantID)
	require.NoError(t, err)
	assert.True(t, math.Abs(merged.Confidence-1.0) < 1e-9, "confidence clamps at 1.0, got %v", merged.Confidence)
}

func TestFindClustersExcludesGlobalDefaults(t *testing.T) {
	st := newMockInstinctStore()
	tenantID := uuid.New()
	now := time.Now()

	st.put(&domain.Instinct{
		TenantID: &tenantID, Domain: domain.DomainCommunication,
		Trigger: "user asks for a quick summary", Action: "keep responses brief and concise",
		Confidence: 0.6, CreatedAt: now,
	})
	st.put(&domain.Instinct{
		TenantID: nil, Domain: domain.DomainCommunication,
		Trigger: "user asks for a quick summary", Action: "keep responses brief and concise please",
		Confidence: 0.6, CreatedAt: now,
	})

	svc := NewSimilarityService(st, NewMaintenanceLocks(), zap.NewNop())

	clusters, err := svc.FindClusters(context.Background(), tenantID, 0)
	require.NoError(t, err)
	assert.Empty(t, clusters, "a tenant must not be able to merge away shared presets")
}
