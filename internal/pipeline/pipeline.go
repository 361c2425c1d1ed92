// Package pipeline runs the three research stages for one domain: collect
// candidate sources, extract their text, and synthesize a fit dossier.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/internal/crm"
	"github.com/sells-group/dossier-cli/internal/fetch"
	"github.com/sells-group/dossier-cli/internal/metrics"
	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/reasoning"
	"github.com/sells-group/dossier-cli/internal/registry"
	"github.com/sells-group/dossier-cli/internal/search"
	"github.com/sells-group/dossier-cli/internal/store"
)

// ErrScoringFailed matches a RunError for a run that ended SCORING_FAILED.
var ErrScoringFailed = eris.New("pipeline: scoring failed")

// RunError reports a run that reached a failed terminal status. The
// returned RunState still carries the collected evidence.
type RunError struct {
	Status model.RunStatus
	Err    error
}

func (e *RunError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pipeline: run ended %s", e.Status)
	}
	return fmt.Sprintf("pipeline: run ended %s: %v", e.Status, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrScoringFailed) match.
func (e *RunError) Is(target error) bool {
	return target == ErrScoringFailed && e.Status == model.RunStatusScoringFailed
}

// Deps are the collaborators of a Pipeline. Reasoner, Registry, CRM and
// Store may be nil.
type Deps struct {
	Searcher search.Searcher
	Fetcher  fetch.Fetcher
	Reasoner reasoning.Reasoner
	Registry registry.Resolver
	CRM      crm.CRM
	Store    store.Store
}

// Pipeline orchestrates a research run.
type Pipeline struct {
	collector   *Collector
	extractor   *Extractor
	synthesizer *Synthesizer
	crm         crm.CRM
	store       store.Store
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source for evidence, dossier and cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.collector.now = now
		p.synthesizer.now = now
	}
}

// WithIDGenerator overrides evidence id generation.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) {
		p.collector.newID = gen
	}
}

// New creates a Pipeline.
func New(cfg *config.Config, deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		collector:   NewCollector(deps.Searcher, cfg.Collect.ResultsPerQuery),
		extractor:   NewExtractor(deps.Fetcher, cfg.Fetch.Concurrency),
		synthesizer: NewSynthesizer(deps.Reasoner, deps.Registry),
		crm:         deps.CRM,
		store:       deps.Store,
		now:         time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes collect, extract and synthesize for domain. Invalid input
// fails before any stage runs. A SCORING_FAILED run returns its state with
// a *RunError; COMPLETE and SKIPPED runs return a state with a dossier and
// a nil error.
func (p *Pipeline) Run(ctx context.Context, domain, recordID string, cfg model.ResearchConfig) (model.RunState, error) {
	d, err := model.NormalizeDomain(domain)
	if err != nil {
		return model.RunState{}, err
	}
	rc := cfg.WithDefaults()
	if err := rc.Validate(); err != nil {
		return model.RunState{}, err
	}

	log := zap.L().With(zap.String("domain", d), zap.String("config_id", rc.ConfigID))
	log.Info("pipeline: starting research")
	start := time.Now()

	state, err := model.NewRunState(d, recordID, rc).Advance(model.RunStatusStarting)
	if err != nil {
		return state, err
	}
	state = p.lookupCompany(ctx, state)

	state, err = p.stage("collect", func() (model.RunState, error) {
		return p.collector.Collect(ctx, state)
	})
	if err != nil {
		return state, eris.Wrap(err, "pipeline: collect")
	}
	if err := ctx.Err(); err != nil {
		return state, eris.Wrap(err, "pipeline: cancelled after collect")
	}

	state, err = p.stage("extract", func() (model.RunState, error) {
		return p.extractor.Extract(ctx, state)
	})
	if err != nil {
		return state, eris.Wrap(err, "pipeline: extract")
	}
	if err := ctx.Err(); err != nil {
		return state, eris.Wrap(err, "pipeline: cancelled after extract")
	}

	state, _ = p.stage("synthesize", func() (model.RunState, error) {
		return p.synthesizer.Synthesize(ctx, state), nil
	})

	metrics.ObserveRun(string(state.Status))
	log.Info("pipeline: research finished",
		zap.String("status", string(state.Status)),
		zap.Int("evidence", len(state.Evidence)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if state.Status == model.RunStatusScoringFailed {
		return state, &RunError{Status: state.Status, Err: state.Err}
	}
	if state.Dossier == nil {
		return state, eris.Errorf("pipeline: run ended %s without a dossier", state.Status)
	}
	return state, nil
}

func (p *Pipeline) stage(name string, fn func() (model.RunState, error)) (model.RunState, error) {
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	metrics.ObserveStage(name, elapsed)
	zap.L().Debug("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Error(err),
	)
	return out, err
}

// lookupCompany attaches the CRM account for the domain. A failed lookup
// is logged and the run continues without it.
func (p *Pipeline) lookupCompany(ctx context.Context, in model.RunState) model.RunState {
	if p.crm == nil {
		return in
	}
	rec, err := p.crm.GetCompanyByDomain(ctx, in.Domain)
	if err != nil {
		zap.L().Warn("pipeline: crm lookup failed", zap.String("domain", in.Domain), zap.Error(err))
		return in
	}
	if rec == nil {
		return in
	}
	out := in.Clone()
	out.Company = rec
	if out.RecordID == "" {
		out.RecordID = rec.ID
	}
	return out
}
