package model

import (
	"slices"

	"github.com/rotisserie/eris"
)

// RunStatus tracks a run's progress. It only ever moves forward.
type RunStatus string

const (
	RunStatusIdle            RunStatus = "IDLE"
	RunStatusStarting        RunStatus = "STARTING"
	RunStatusCollecting      RunStatus = "COLLECTING"
	RunStatusExtracting      RunStatus = "EXTRACTING"
	RunStatusScoringComplete RunStatus = "SCORING_COMPLETE"
	RunStatusScoringSkipped  RunStatus = "SCORING_SKIPPED"
	RunStatusScoringFailed   RunStatus = "SCORING_FAILED"
)

// rank orders statuses; the three scoring outcomes share the terminal rank.
func (s RunStatus) rank() int {
	switch s {
	case RunStatusIdle:
		return 0
	case RunStatusStarting:
		return 1
	case RunStatusCollecting:
		return 2
	case RunStatusExtracting:
		return 3
	case RunStatusScoringComplete, RunStatusScoringSkipped, RunStatusScoringFailed:
		return 4
	}
	return -1
}

// IsTerminal reports whether s is one of the SCORING_* outcomes.
func (s RunStatus) IsTerminal() bool { return s.rank() == 4 }

// ErrStatusRegression is returned when a transition would revisit a stage.
var ErrStatusRegression = eris.New("model: run status may not move backwards")

// RunState is the per-run accumulator. Stages receive a RunState and return
// a new one; they never modify the value they were given.
type RunState struct {
	Domain   string          `json:"domain"`
	RecordID string          `json:"record_id,omitempty"`
	Config   ResearchConfig  `json:"config"`
	Company  *CompanyRecord  `json:"company,omitempty"`
	Evidence []EvidenceItem  `json:"evidence"`
	Dossier  *AccountDossier `json:"dossier,omitempty"`
	Status   RunStatus       `json:"status"`

	// Err holds the cause of a SCORING_FAILED outcome.
	Err error `json:"-"`
}

// NewRunState returns an IDLE state for domain.
func NewRunState(domain, recordID string, cfg ResearchConfig) RunState {
	return RunState{
		Domain:   domain,
		RecordID: recordID,
		Config:   cfg,
		Status:   RunStatusIdle,
	}
}

// Clone returns a deep copy safe to modify.
func (r RunState) Clone() RunState {
	out := r
	out.Evidence = make([]EvidenceItem, len(r.Evidence))
	for i, e := range r.Evidence {
		if e.Excerpt != nil {
			ex := *e.Excerpt
			e.Excerpt = &ex
		}
		out.Evidence[i] = e
	}
	if r.Company != nil {
		c := *r.Company
		out.Company = &c
	}
	if r.Dossier != nil {
		d := *r.Dossier
		d.Signals = slices.Clone(r.Dossier.Signals)
		d.Diagnosis.ReasoningBullets = slices.Clone(r.Dossier.Diagnosis.ReasoningBullets)
		d.Diagnosis.EvidenceIDs = slices.Clone(r.Dossier.Diagnosis.EvidenceIDs)
		out.Dossier = &d
	}
	return out
}

// Advance returns a copy of r with status next. It fails if next does not
// rank strictly after the current status.
func (r RunState) Advance(next RunStatus) (RunState, error) {
	if next.rank() < 0 {
		return r, eris.Errorf("model: unknown run status %q", next)
	}
	if next.rank() <= r.Status.rank() {
		return r, eris.Wrapf(ErrStatusRegression, "%s -> %s", r.Status, next)
	}
	out := r.Clone()
	out.Status = next
	return out, nil
}
