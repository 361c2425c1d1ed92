package model

import (
	"slices"
	"time"

	"github.com/rotisserie/eris"
)

// Dossier schema version tags.
const (
	SchemaVersion         = "dossier_v1"
	DegradedSchemaVersion = "dossier_v1-degraded"
)

// FitTier is an ordinal sales-qualification grade, A best through D disqualified.
type FitTier string

const (
	FitTierA FitTier = "A"
	FitTierB FitTier = "B"
	FitTierC FitTier = "C"
	FitTierD FitTier = "D"
)

// DefaultFitTier is used when the model omits a tier or scoring is skipped.
const DefaultFitTier = FitTierC

// Rank returns 1 for A through 4 for D, and 0 for unknown tiers.
func (t FitTier) Rank() int {
	switch t {
	case FitTierA:
		return 1
	case FitTierB:
		return 2
	case FitTierC:
		return 3
	case FitTierD:
		return 4
	}
	return 0
}

// IsValid reports whether t is one of A, B, C, D.
func (t FitTier) IsValid() bool { return t.Rank() > 0 }

// Firmographics holds basic company facts.
type Firmographics struct {
	CompanyName   string `json:"company_name,omitempty"`
	HQLocation    string `json:"hq_location,omitempty"`
	EmployeeRange string `json:"employee_range,omitempty"`
	Industry      string `json:"industry,omitempty"`
}

// Positioning summarizes how the company describes itself.
type Positioning struct {
	OneLiner      string `json:"one_liner,omitempty"`
	Category      string `json:"category,omitempty"`
	IdealCustomer string `json:"ideal_customer,omitempty"`
}

// GTMDiagnosis is the fit judgment.
type GTMDiagnosis struct {
	FitTier          FitTier  `json:"fit_tier"`
	DiagnosisLabel   string   `json:"diagnosis_label"`
	ReasoningBullets []string `json:"reasoning_bullets"`
	Confidence       float64  `json:"confidence"`
	EvidenceIDs      []string `json:"evidence_ids"`
}

// DossierMeta records provenance of a dossier.
type DossierMeta struct {
	ConfigID    string    `json:"config_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Version     string    `json:"version"`
}

// AccountDossier is the pipeline output for one domain.
type AccountDossier struct {
	Domain        string        `json:"domain"`
	RecordID      string        `json:"record_id,omitempty"`
	Firmographics Firmographics `json:"firmographics"`
	Positioning   Positioning   `json:"positioning"`
	Signals       []Signal      `json:"signals"`
	Diagnosis     GTMDiagnosis  `json:"gtm_diagnosis"`
	Meta          DossierMeta   `json:"meta"`
}

// Degraded reports whether the dossier was produced without a model judgment.
func (d *AccountDossier) Degraded() bool {
	return d.Meta.Version == DegradedSchemaVersion
}

// ErrUnknownCitation is returned when a dossier cites evidence outside its run.
var ErrUnknownCitation = eris.New("model: citation references unknown evidence")

// ValidateCitations checks that every evidence id cited by the dossier's
// signals and diagnosis exists in evidence.
func ValidateCitations(d *AccountDossier, evidence []EvidenceItem) error {
	if d == nil {
		return nil
	}
	known := EvidenceIDSet(evidence)
	for _, s := range d.Signals {
		for _, id := range s.EvidenceIDs {
			if _, ok := known[id]; !ok {
				return eris.Wrapf(ErrUnknownCitation, "signal %q cites %q", s.Label, id)
			}
		}
	}
	for _, id := range d.Diagnosis.EvidenceIDs {
		if _, ok := known[id]; !ok {
			return eris.Wrapf(ErrUnknownCitation, "diagnosis cites %q", id)
		}
	}
	return nil
}

// EvidenceIDSet indexes the evidence ids of a run.
func EvidenceIDSet(evidence []EvidenceItem) map[string]struct{} {
	out := make(map[string]struct{}, len(evidence))
	for _, e := range evidence {
		out[e.EvidenceID] = struct{}{}
	}
	return out
}

// KnownCitations returns the ids in ids that are present in known, in order,
// with duplicates removed. The result is never nil.
func KnownCitations(ids []string, known map[string]struct{}) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			continue
		}
		if slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
