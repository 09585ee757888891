package model

import "strings"

// ResistanceStatus - normalized resistance verdict
type ResistanceStatus string

const (
	StatusResistant    ResistanceStatus = "resistant"
	StatusSusceptible  ResistanceStatus = "susceptible"
	StatusIntermediate ResistanceStatus = "intermediate"
	StatusUnknown      ResistanceStatus = "unknown"
)

// ParseResistanceStatus maps free status text onto the enum, case-insensitively.
// Surrounding whitespace is ignored; unrecognized text is StatusUnknown.
func ParseResistanceStatus(s string) ResistanceStatus {
	switch ResistanceStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusResistant:
		return StatusResistant
	case StatusSusceptible:
		return StatusSusceptible
	case StatusIntermediate:
		return StatusIntermediate
	default:
		return StatusUnknown
	}
}

// AnalysisRecord - display-ready view of one completed analysis
type AnalysisRecord struct {
	ID                       string                    `json:"id,omitempty"`
	SampleLabel              string                    `json:"sampleLabel"`
	Status                   ResistanceStatus          `json:"status"`
	ConfidencePercent        float64                   `json:"confidencePercent"`
	IdentifiedGenes          []string                  `json:"identifiedGenes"`
	MatchingRegions          []MatchingRegion          `json:"matchingRegions"`
	TreatmentRecommendations *TreatmentRecommendations `json:"treatmentRecommendations"`
	Timestamp                string                    `json:"timestamp"`
	SavedAt                  string                    `json:"savedAt"`
}

// StableKey returns the server id when present, otherwise savedAt.
func (r AnalysisRecord) StableKey() string {
	if r.ID != "" {
		return r.ID
	}
	return r.SavedAt
}

// MatchingRegion - one alignment of the query against a resistance gene
type MatchingRegion struct {
	GeneName        string  `json:"geneName"`
	QueryStart      int     `json:"queryStart"`
	QueryEnd        int     `json:"queryEnd"`
	SubjectStart    int     `json:"subjectStart"`
	SubjectEnd      int     `json:"subjectEnd"`
	AlignmentLength int     `json:"alignmentLength"`
	PercentIdentity float64 `json:"percentIdentity"`
	Evalue          float64 `json:"evalue"`
}

// TreatmentRecommendations - antibiotic guidance attached to a result
type TreatmentRecommendations struct {
	RecommendedAntibiotics []string `json:"recommendedAntibiotics"`
	AvoidAntibiotics       []string `json:"avoidAntibiotics"`
	Notes                  *string  `json:"notes,omitempty"`
}
