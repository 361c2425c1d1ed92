package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/reasoning"
	"github.com/sells-group/dossier-cli/internal/registry"
)

func extractedState() model.RunState {
	s := collectedState("https://acme.com", "https://acme.com/jobs")
	s, err := s.Advance(model.RunStatusExtracting)
	if err != nil {
		panic(err)
	}
	s.Evidence[0].Excerpt = strPtr("Acme sells rocket skates to coyotes")
	s.Evidence[0].ExtractMethod = model.ExtractDirect
	s.Evidence[1].Excerpt = strPtr("Hiring: VP of Sales")
	s.Evidence[1].ExtractMethod = model.ExtractDirect
	return s
}

func newTestSynthesizer(r reasoning.Reasoner, reg registry.Resolver) *Synthesizer {
	s := NewSynthesizer(r, reg)
	s.now = fixedClock
	return s
}

func TestSynthesize_SkippedWithoutReasoner(t *testing.T) {
	in := extractedState()
	out := newTestSynthesizer(nil, nil).Synthesize(context.Background(), in)

	assert.Equal(t, model.RunStatusScoringSkipped, out.Status)
	require.NotNil(t, out.Dossier)
	assert.NoError(t, out.Err)
	assert.Equal(t, MissingKeyLabel, out.Dossier.Diagnosis.DiagnosisLabel)
	assert.Equal(t, model.FitTierC, out.Dossier.Diagnosis.FitTier)
	assert.Equal(t, 0.0, out.Dossier.Diagnosis.Confidence)
	assert.Equal(t, model.DegradedSchemaVersion, out.Dossier.Meta.Version)
	assert.Equal(t, "cfg_saas", out.Dossier.Meta.ConfigID)
	assert.Equal(t, fixedNow, out.Dossier.Meta.GeneratedAt)
	assert.True(t, out.Dossier.Degraded())
	assert.Equal(t, model.RunStatusExtracting, in.Status)
}

func TestSynthesize_Complete(t *testing.T) {
	r := &mockReasoner{}
	r.On("Complete", mock.Anything, mock.Anything, withLabel("signals")).
		Return(`{"signals":[{"signal_type":"EXEC_HIRE","label":"Hiring VP Sales","value":"VP Sales","confidence":0.9,"evidence_ids":["ev_2"]}]}`, nil)
	r.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return assertContainsAll(p, "SOURCE [ev_1]", "SOURCE [ev_2]", "Hiring VP Sales", "SaaS mid-market")
	}), withLabel("fit")).
		Return("```json\n{\"fit_tier\":\"A\",\"diagnosis_label\":\"High Fit\",\"reasoning_bullets\":[\"Hiring sales leadership\"],\"confidence\":0.85,\"evidence_ids\":[\"ev_2\",\"ev_404\"]}\n```", nil)

	fr, err := registry.ParseFile([]byte("rulesets:\n  - id: icp_saas_midmarket\n    name: SaaS mid-market\n"))
	require.NoError(t, err)
	reg := registry.Chain{fr}

	out := newTestSynthesizer(r, reg).Synthesize(context.Background(), extractedState())

	require.Equal(t, model.RunStatusScoringComplete, out.Status)
	require.NotNil(t, out.Dossier)
	d := out.Dossier
	assert.Equal(t, model.FitTierA, d.Diagnosis.FitTier)
	assert.Equal(t, "High Fit", d.Diagnosis.DiagnosisLabel)
	assert.Equal(t, []string{"Hiring sales leadership"}, d.Diagnosis.ReasoningBullets)
	assert.Equal(t, 0.85, d.Diagnosis.Confidence)
	assert.Equal(t, []string{"ev_2"}, d.Diagnosis.EvidenceIDs)
	require.Len(t, d.Signals, 1)
	assert.Equal(t, model.SignalExecHire, d.Signals[0].Type)
	assert.Equal(t, model.SchemaVersion, d.Meta.Version)
	assert.Equal(t, "acme.com", d.Domain)
	assert.NoError(t, model.ValidateCitations(d, out.Evidence))
	r.AssertExpectations(t)
}

func TestSynthesize_DefaultsForOmittedFields(t *testing.T) {
	r := &mockReasoner{}
	r.On("Complete", mock.Anything, mock.Anything, withLabel("signals")).Return(`[]`, nil)
	r.On("Complete", mock.Anything, mock.Anything, withLabel("fit")).Return(`{}`, nil)

	out := newTestSynthesizer(r, nil).Synthesize(context.Background(), extractedState())
	require.Equal(t, model.RunStatusScoringComplete, out.Status)
	assert.Equal(t, model.FitTierC, out.Dossier.Diagnosis.FitTier)
	assert.Equal(t, "Analyzed", out.Dossier.Diagnosis.DiagnosisLabel)
	assert.Equal(t, []string{}, out.Dossier.Diagnosis.ReasoningBullets)
	assert.Equal(t, []model.Signal{}, out.Dossier.Signals)
}

func TestSynthesize_SignalFailureIsNonFatal(t *testing.T) {
	r := &mockReasoner{}
	r.On("Complete", mock.Anything, mock.Anything, withLabel("signals")).
		Return("", &reasoning.Error{Kind: reasoning.KindStatus, StatusCode: 529})
	r.On("Complete", mock.Anything, mock.Anything, withLabel("fit")).
		Return(`{"fit_tier":"B","confidence":0.5}`, nil)

	out := newTestSynthesizer(r, nil).Synthesize(context.Background(), extractedState())
	require.Equal(t, model.RunStatusScoringComplete, out.Status)
	assert.Empty(t, out.Dossier.Signals)
	assert.Equal(t, model.FitTierB, out.Dossier.Diagnosis.FitTier)
}

func TestSynthesize_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fitText string
		fitErr  error
	}{
		{"service error", "", &reasoning.Error{Kind: reasoning.KindTransport, Err: assert.AnError}},
		{"not json", "Tier A, definitely", nil},
		{"bad tier", `{"fit_tier":"Z"}`, nil},
		{"bad confidence", `{"fit_tier":"A","confidence":7}`, nil},
		{"null", "null", nil},
		{"fenced null", "```json\nnull\n```", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockReasoner{}
			r.On("Complete", mock.Anything, mock.Anything, withLabel("signals")).Return(`[]`, nil)
			r.On("Complete", mock.Anything, mock.Anything, withLabel("fit")).Return(tt.fitText, tt.fitErr)

			in := extractedState()
			out := newTestSynthesizer(r, nil).Synthesize(context.Background(), in)

			assert.Equal(t, model.RunStatusScoringFailed, out.Status)
			assert.Nil(t, out.Dossier)
			assert.Error(t, out.Err)
			assert.Len(t, out.Evidence, len(in.Evidence))
		})
	}
}

func TestSynthesize_NoEvidenceSkipsSignalCall(t *testing.T) {
	r := &mockReasoner{}
	r.On("Complete", mock.Anything, mock.Anything, withLabel("fit")).Return(`{"fit_tier":"D"}`, nil)

	in, err := collectedState().Advance(model.RunStatusExtracting)
	require.NoError(t, err)

	out := newTestSynthesizer(r, nil).Synthesize(context.Background(), in)
	require.Equal(t, model.RunStatusScoringComplete, out.Status)
	assert.Equal(t, model.FitTierD, out.Dossier.Diagnosis.FitTier)
	r.AssertNumberOfCalls(t, "Complete", 1)
}

func TestSynthesize_HydratesFromCompany(t *testing.T) {
	in := extractedState()
	in.Company = &model.CompanyRecord{
		ID:          "001A",
		Name:        "Acme Corp",
		City:        "Phoenix, AZ",
		Industry:    "Manufacturing",
		Description: "Rocket skates",
	}
	in.RecordID = "001A"

	out := newTestSynthesizer(nil, nil).Synthesize(context.Background(), in)
	require.NotNil(t, out.Dossier)
	assert.Equal(t, "001A", out.Dossier.RecordID)
	assert.Equal(t, "Acme Corp", out.Dossier.Firmographics.CompanyName)
	assert.Equal(t, "Phoenix, AZ", out.Dossier.Firmographics.HQLocation)
	assert.Equal(t, "Manufacturing", out.Dossier.Firmographics.Industry)
	assert.Equal(t, "Rocket skates", out.Dossier.Positioning.OneLiner)
}

func TestSynthesize_TerminalInputFails(t *testing.T) {
	in := extractedState()
	in, err := in.Advance(model.RunStatusScoringComplete)
	require.NoError(t, err)

	out := newTestSynthesizer(nil, nil).Synthesize(context.Background(), in)
	assert.Equal(t, model.RunStatusScoringFailed, out.Status)
	assert.ErrorIs(t, out.Err, model.ErrStatusRegression)
	assert.Nil(t, out.Dossier)
}

func assertContainsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
