package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/reasoning"
	"github.com/sells-group/dossier-cli/internal/registry"
)

// MissingKeyLabel is the diagnosis label of a dossier produced without a
// reasoning service.
const MissingKeyLabel = "Key Missing: Anthropic API Key"

// Synthesizer turns extracted evidence into a scored dossier.
type Synthesizer struct {
	reasoner reasoning.Reasoner
	registry registry.Resolver
	now      func() time.Time
}

// NewSynthesizer creates a Synthesizer. A nil reasoner makes every run
// finish as SCORING_SKIPPED; a nil registry uses bare ruleset ids.
func NewSynthesizer(r reasoning.Reasoner, reg registry.Resolver) *Synthesizer {
	return &Synthesizer{reasoner: r, registry: reg, now: time.Now}
}

// Synthesize scores the run. It never returns an error: the outcome is
// carried by the returned state's status, and a SCORING_FAILED state keeps
// its cause on Err.
func (s *Synthesizer) Synthesize(ctx context.Context, in model.RunState) model.RunState {
	log := zap.L().With(zap.String("domain", in.Domain), zap.String("config_id", in.Config.ConfigID))

	if s.reasoner == nil {
		log.Warn("synthesize: no reasoning key, skipping scoring")
		d := s.newDossier(in, model.DegradedSchemaVersion)
		d.Diagnosis.DiagnosisLabel = MissingKeyLabel
		return finish(in, model.RunStatusScoringSkipped, d, nil)
	}

	block := evidenceBlock(in.Evidence)
	known := model.EvidenceIDSet(in.Evidence)
	signals := s.extractSignals(ctx, in, block)
	ruleset := registry.ResolveOrBare(ctx, s.registry, in.Config.ICPRulesetID)

	text, err := s.reasoner.Complete(ctx, fitPrompt(in.Config, ruleset, block, signals), reasoning.Options{
		Temperature: 0,
		JSONMode:    true,
		Label:       "fit",
	})
	if err != nil {
		log.Error("synthesize: fit scoring failed", zap.Error(err))
		return finish(in, model.RunStatusScoringFailed, nil, eris.Wrap(err, "synthesize: fit scoring"))
	}

	parsed, err := parseFit(text)
	if err != nil {
		log.Error("synthesize: fit response unusable", zap.Error(err))
		return finish(in, model.RunStatusScoringFailed, nil, err)
	}

	d := s.newDossier(in, model.SchemaVersion)
	d.Diagnosis = mergeDiagnosis(parsed, known)
	d.Signals = signals

	if err := model.ValidateCitations(d, in.Evidence); err != nil {
		return finish(in, model.RunStatusScoringFailed, nil, err)
	}

	log.Info("synthesize: scored",
		zap.String("fit_tier", string(d.Diagnosis.FitTier)),
		zap.Float64("confidence", d.Diagnosis.Confidence),
		zap.Int("signals", len(d.Signals)),
	)
	return finish(in, model.RunStatusScoringComplete, d, nil)
}

// newDossier returns a dossier with default diagnosis and meta, hydrated
// from the CRM company record when one was found.
func (s *Synthesizer) newDossier(in model.RunState, version string) *model.AccountDossier {
	d := &model.AccountDossier{
		Domain:   in.Domain,
		RecordID: in.RecordID,
		Firmographics: model.Firmographics{
			CompanyName: in.Domain,
		},
		Signals:   []model.Signal{},
		Diagnosis: mergeDiagnosis(nil, nil),
		Meta: model.DossierMeta{
			ConfigID:    in.Config.ConfigID,
			GeneratedAt: s.now().UTC(),
			Version:     version,
		},
	}
	if c := in.Company; c != nil {
		if c.Name != "" {
			d.Firmographics.CompanyName = c.Name
		}
		d.Firmographics.HQLocation = c.City
		d.Firmographics.Industry = c.Industry
		d.Positioning.OneLiner = c.Description
	}
	return d
}

// finish moves in to a terminal status. A status regression is reported as
// SCORING_FAILED.
func finish(in model.RunState, status model.RunStatus, d *model.AccountDossier, cause error) model.RunState {
	out, err := in.Advance(status)
	if err != nil {
		out = in.Clone()
		out.Status = model.RunStatusScoringFailed
		out.Dossier = nil
		out.Err = err
		return out
	}
	out.Dossier = d
	out.Err = cause
	return out
}
