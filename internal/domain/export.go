package domain

import "time"

// ExportVersion is the current portable document version. Import rejects
// documents carrying any other version.
const ExportVersion = 1

// ImportStrategy selects how an import treats existing records.
type ImportStrategy string

const (
	ImportMerge   ImportStrategy = "merge"
	ImportReplace ImportStrategy = "replace"
)

func ValidImportStrategy(s string) bool {
	switch ImportStrategy(s) {
	case ImportMerge, ImportReplace:
		return true
	}
	return false
}

// ExportedInstinct is the portable representation of one instinct. Ids are
// deliberately absent; import always mints fresh ones.
type ExportedInstinct struct {
	Domain          InstinctDomain `json:"domain"`
	Trigger         string         `json:"trigger"`
	Action          string         `json:"action"`
	Source          Source         `json:"source"`
	Confidence      float64        `json:"confidence"`
	OccurrenceCount int            `json:"occurrence_count"`
	SuccessRate     float64        `json:"success_rate"`
	LastTriggeredAt *time.Time     `json:"last_triggered_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// ExportDocument is the versioned backup/transfer format. It must round-trip
// losslessly through export then import.
type ExportDocument struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Instincts  []ExportedInstinct `json:"instincts"`
}
