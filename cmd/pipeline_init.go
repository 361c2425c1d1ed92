package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/crm"
	"github.com/sells-group/dossier-cli/internal/fetch"
	"github.com/sells-group/dossier-cli/internal/pipeline"
	"github.com/sells-group/dossier-cli/internal/reasoning"
	"github.com/sells-group/dossier-cli/internal/registry"
	"github.com/sells-group/dossier-cli/internal/search"
	"github.com/sells-group/dossier-cli/internal/store"
)

// pipelineEnv holds the pipeline and the resources the run and serve
// commands must release.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, builds every collaborator and the
// Pipeline. Collaborators without credentials degrade rather than fail.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	reg, err := registry.New(cfg)
	if err != nil {
		closeStore(st)
		return nil, eris.Wrap(err, "init ruleset registry")
	}

	crmClient, err := crm.New(cfg.Salesforce)
	if err != nil {
		closeStore(st)
		return nil, eris.Wrap(err, "init crm")
	}

	reasoner := reasoning.New(cfg.Anthropic)
	searcher := search.New(cfg)

	zap.L().Info("pipeline initialized",
		zap.String("search_provider", searcher.Name()),
		zap.String("fetch_proxy", cfg.Fetch.Proxy),
		zap.Bool("scoring_enabled", reasoner != nil),
		zap.Bool("cache_enabled", st != nil),
		zap.Bool("registry_enabled", reg != nil),
	)

	deps := pipeline.Deps{
		Searcher: searcher,
		Fetcher:  fetch.New(cfg),
		Reasoner: reasoner,
		Registry: reg,
		CRM:      crmClient,
		Store:    st,
	}

	return &pipelineEnv{
		Store:    st,
		Pipeline: pipeline.New(cfg, deps),
	}, nil
}

func closeStore(st store.Store) {
	if st != nil {
		_ = st.Close()
	}
}
