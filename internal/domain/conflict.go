package domain

// ConflictTarget identifies a class of instincts a rule suppresses, matched
// by domain plus a case-insensitive substring of the action text.
type ConflictTarget struct {
	Domain        InstinctDomain `json:"domain"`
	ActionPattern string         `json:"action_pattern"`
}

// ConflictRule lets a sufficiently confident instinct override contradictory
// weaker ones. Rules are shared policy, not per-tenant state.
type ConflictRule struct {
	OverridingDomain        InstinctDomain   `json:"overriding_domain"`
	OverridingActionPattern string           `json:"overriding_action_pattern"`
	MinOverridingConfidence float64          `json:"min_overriding_confidence"`
	Overrides               []ConflictTarget `json:"overrides"`
}

// DefaultConflictRules is the standard policy table.
var DefaultConflictRules = []ConflictRule{
	{
		OverridingDomain:        DomainCommunication,
		OverridingActionPattern: "concise",
		MinOverridingConfidence: 0.6,
		Overrides: []ConflictTarget{
			{Domain: DomainCommunication, ActionPattern: "detailed"},
			{Domain: DomainCommunication, ActionPattern: "verbose"},
			{Domain: DomainCommunication, ActionPattern: "thorough explanation"},
		},
	},
	{
		OverridingDomain:        DomainVerification,
		OverridingActionPattern: "run tests",
		MinOverridingConfidence: 0.7,
		Overrides: []ConflictTarget{
			{Domain: DomainWorkflow, ActionPattern: "skip tests"},
			{Domain: DomainWorkflow, ActionPattern: "skip verification"},
		},
	},
	{
		OverridingDomain:        DomainTiming,
		OverridingActionPattern: "ask before",
		MinOverridingConfidence: 0.7,
		Overrides: []ConflictTarget{
			{Domain: DomainWorkflow, ActionPattern: "without asking"},
			{Domain: DomainWorkflow, ActionPattern: "proceed immediately"},
		},
	},
	{
		OverridingDomain:        DomainFormat,
		OverridingActionPattern: "plain text",
		MinOverridingConfidence: 0.6,
		Overrides: []ConflictTarget{
			{Domain: DomainFormat, ActionPattern: "emoji"},
			{Domain: DomainFormat, ActionPattern: "rich formatting"},
		},
	},
}
