package model

// SignalType classifies an atomic fact inferred from evidence.
type SignalType string

const (
	SignalExecHire      SignalType = "EXEC_HIRE"
	SignalFunding       SignalType = "FUNDING"
	SignalTechStack     SignalType = "TECH_STACK"
	SignalGTMTooling    SignalType = "GTM_TOOLING"
	SignalPartner       SignalType = "PARTNER"
	SignalExpansion     SignalType = "EXPANSION"
	SignalCompliance    SignalType = "COMPLIANCE"
	SignalProductLaunch SignalType = "PRODUCT_LAUNCH"
)

// AllSignalTypes returns every known signal type.
func AllSignalTypes() []SignalType {
	return []SignalType{
		SignalExecHire,
		SignalFunding,
		SignalTechStack,
		SignalGTMTooling,
		SignalPartner,
		SignalExpansion,
		SignalCompliance,
		SignalProductLaunch,
	}
}

// IsValid reports whether t is a known signal type.
func (t SignalType) IsValid() bool {
	for _, s := range AllSignalTypes() {
		if s == t {
			return true
		}
	}
	return false
}

// Signal is a citable fact supporting a fit judgment.
type Signal struct {
	Type        SignalType `json:"signal_type"`
	Label       string     `json:"label"`
	Value       string     `json:"value"`
	Confidence  float64    `json:"confidence"`
	EvidenceIDs []string   `json:"evidence_ids"`
}

// Inferred reports whether the signal cites no evidence. Callers should
// weigh inferred signals below cited ones.
func (s Signal) Inferred() bool {
	return len(s.EvidenceIDs) == 0
}
