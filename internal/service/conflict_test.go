package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/instinctd/instinctd/internal/domain"
)

func scoredEntry(d domain.InstinctDomain, action string, final float64, createdAt time.Time) domain.ScoredInstinct {
	return domain.ScoredInstinct{
		Instinct: domain.Instinct{
			ID:        uuid.New(),
			Domain:    d,
			Trigger:   "test trigger",
			Action:    action,
			CreatedAt: createdAt,
		},
		Final: final,
	}
}

func survivingIDs(scored []domain.ScoredInstinct) []uuid.UUID {
	ids := make([]uuid.UUID, len(scored))
	for i, s := range scored {
		ids[i] = s.ID
	}
	return ids
}

func TestResolveConciseOverridesDetailed(t *testing.T) {
	now := time.Now()
	concise := scoredEntry(domain.DomainCommunication, "keep responses concise", 0.8, now)
	detailed := scoredEntry(domain.DomainCommunication, "give detailed explanations", 0.7, now)

	r := NewConflictResolver(nil)
	kept := r.Resolve([]domain.ScoredInstinct{detailed, concise})

	if len(kept) != 1 {
		t.Fatalf("kept %d entries, want 1", len(kept))
	}
	if kept[0].ID != concise.ID {
		t.Errorf("kept %q, want the concise entry", kept[0].Action)
	}
}

func TestResolveBelowMinConfidence(t *testing.T) {
	now := time.Now()
	// The concise entry is below the rule's 0.6 threshold, so it cannot
	// suppress anything.
	concise := scoredEntry(domain.DomainCommunication, "keep responses concise", 0.55, now)
	detailed := scoredEntry(domain.DomainCommunication, "give detailed explanations", 0.5, now)

	r := NewConflictResolver(nil)
	kept := r.Resolve([]domain.ScoredInstinct{concise, detailed})

	if len(kept) != 2 {
		t.Fatalf("kept %d entries, want 2", len(kept))
	}
}

func TestResolveUnrelatedDomainsUntouched(t *testing.T) {
	now := time.Now()
	entries := []domain.ScoredInstinct{
		scoredEntry(domain.DomainCommunication, "keep responses concise", 0.9, now),
		scoredEntry(domain.DomainVerification, "always run tests before committing", 0.8, now),
		scoredEntry(domain.DomainExpertise, "user is a senior engineer", 0.7, now),
	}

	r := NewConflictResolver(nil)
	kept := r.Resolve(entries)

	if len(kept) != 3 {
		t.Fatalf("kept %d entries, want 3", len(kept))
	}
}

func TestResolveRunTestsOverridesSkipTests(t *testing.T) {
	now := time.Now()
	runTests := scoredEntry(domain.DomainVerification, "run tests after every change", 0.75, now)
	skipTests := scoredEntry(domain.DomainWorkflow, "skip tests for small changes", 0.7, now)

	r := NewConflictResolver(nil)
	kept := r.Resolve([]domain.ScoredInstinct{skipTests, runTests})

	if len(kept) != 1 || kept[0].ID != runTests.ID {
		t.Fatalf("expected only the verification entry to survive, got %d entries", len(kept))
	}
}

func TestResolveDeterministicAcrossInputOrder(t *testing.T) {
	now := time.Now()
	a := scoredEntry(domain.DomainCommunication, "keep responses concise", 0.8, now.Add(-time.Hour))
	b := scoredEntry(domain.DomainCommunication, "give detailed explanations", 0.7, now)
	c := scoredEntry(domain.DomainFormat, "use plain text only", 0.9, now)
	d := scoredEntry(domain.DomainFormat, "use emoji liberally", 0.85, now)

	orderings := [][]domain.ScoredInstinct{
		{a, b, c, d},
		{d, c, b, a},
		{b, d, a, c},
		{c, a, d, b},
	}

	r := NewConflictResolver(nil)

	first := survivingIDs(r.Resolve(orderings[0]))
	for _, ordering := range orderings[1:] {
		got := survivingIDs(r.Resolve(ordering))
		if len(got) != len(first) {
			t.Fatalf("survivor count varies with input order: %d vs %d", len(got), len(first))
		}
		for i := range got {
			if got[i] != first[i] {
				t.Fatalf("survivor order varies with input order at position %d", i)
			}
		}
	}

	if len(first) != 2 {
		t.Errorf("kept %d entries, want 2 (concise and plain text)", len(first))
	}
}

func TestResolveTieBreakByCreation(t *testing.T) {
	now := time.Now()
	// Equal finals: the earlier-created concise entry is processed first and
	// suppresses the detailed one.
	concise := scoredEntry(domain.DomainCommunication, "keep responses concise", 0.7, now.Add(-time.Hour))
	detailed := scoredEntry(domain.DomainCommunication, "give detailed explanations", 0.7, now)

	r := NewConflictResolver(nil)
	kept := r.Resolve([]domain.ScoredInstinct{detailed, concise})

	if len(kept) != 1 || kept[0].ID != concise.ID {
		t.Fatalf("expected the earlier concise entry to win the tie")
	}
}

func TestResolveCaseInsensitiveMatch(t *testing.T) {
	now := time.Now()
	concise := scoredEntry(domain.DomainCommunication, "Keep Responses CONCISE", 0.8, now)
	detailed := scoredEntry(domain.DomainCommunication, "give DETAILED explanations", 0.7, now)

	r := NewConflictResolver(nil)
	kept := r.Resolve([]domain.ScoredInstinct{concise, detailed})

	if len(kept) != 1 {
		t.Fatalf("kept %d entries, want 1 (matching is case-insensitive)", len(kept))
	}
}
