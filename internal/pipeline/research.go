package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/crm"
	"github.com/sells-group/dossier-cli/internal/metrics"
	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/store"
)

// Request is one research request.
type Request struct {
	Domain       string               `json:"domain" validate:"required"`
	RecordID     string               `json:"record_id,omitempty"`
	ForceRefresh bool                 `json:"force_refresh,omitempty"`
	Config       model.ResearchConfig `json:"config" validate:"required"`
}

// Research runs the pipeline behind the dossier cache and writes a
// completed dossier back to the CRM. A fresh cached dossier is returned as
// SCORING_COMPLETE without running any stage.
func (p *Pipeline) Research(ctx context.Context, req Request) (model.RunState, error) {
	if p.store != nil && !req.ForceRefresh {
		if state, ok := p.cached(ctx, req); ok {
			return state, nil
		}
	}

	state, err := p.Run(ctx, req.Domain, req.RecordID, req.Config)
	if err != nil {
		return state, err
	}
	if state.Status != model.RunStatusScoringComplete {
		return state, nil
	}

	if p.store != nil {
		if err := p.store.PutDossier(ctx, state.Dossier); err != nil {
			zap.L().Warn("pipeline: cache write failed", zap.String("domain", state.Domain), zap.Error(err))
		}
	}
	p.writeBack(ctx, state)
	return state, nil
}

func (p *Pipeline) cached(ctx context.Context, req Request) (model.RunState, bool) {
	domain, err := model.NormalizeDomain(req.Domain)
	if err != nil {
		return model.RunState{}, false
	}
	rc := req.Config.WithDefaults()
	if rc.Validate() != nil {
		return model.RunState{}, false
	}

	entry, err := p.store.GetDossier(ctx, domain, rc.ConfigID)
	if err != nil {
		zap.L().Warn("pipeline: cache lookup failed", zap.String("domain", domain), zap.Error(err))
		metrics.ObserveCacheLookup("error")
		return model.RunState{}, false
	}
	if entry == nil {
		metrics.ObserveCacheLookup("miss")
		return model.RunState{}, false
	}
	if !Fresh(entry, rc.RefreshPolicy, p.now()) {
		metrics.ObserveCacheLookup("stale")
		return model.RunState{}, false
	}

	metrics.ObserveCacheLookup("hit")
	zap.L().Info("pipeline: serving cached dossier",
		zap.String("domain", domain),
		zap.String("config_id", rc.ConfigID),
		zap.Time("cached_at", entry.CachedAt),
	)

	state := model.NewRunState(domain, req.RecordID, rc)
	state, err = state.Advance(model.RunStatusScoringComplete)
	if err != nil {
		return model.RunState{}, false
	}
	d := entry.Dossier
	state.Dossier = &d
	if state.RecordID == "" {
		state.RecordID = d.RecordID
	}
	return state, true
}

// Fresh reports whether a cached entry may be served under policy: it must
// be younger than TTLDays and carry no signal listed in ForceRefreshSignals.
func Fresh(e *store.Entry, policy model.RefreshPolicy, now time.Time) bool {
	ttl := policy.TTL()
	if e == nil || ttl <= 0 {
		return false
	}
	if e.Age(now) >= ttl {
		return false
	}
	for _, s := range e.Dossier.Signals {
		if policy.ForcesRefresh(s.Type) {
			return false
		}
	}
	return true
}

// writeBack pushes a completed dossier to the CRM according to the run's
// update mode. Failures are logged.
func (p *Pipeline) writeBack(ctx context.Context, state model.RunState) {
	if p.crm == nil || state.Dossier == nil {
		return
	}
	log := zap.L().With(zap.String("domain", state.Domain), zap.String("record_id", state.RecordID))
	if state.RecordID == "" {
		log.Debug("pipeline: no crm record, skipping write-back")
		return
	}

	mode := state.Config.CRMUpdateMode
	props := crm.DossierProperties(state.Dossier)

	var err error
	switch mode {
	case model.CRMUpdateAuto:
		err = p.crm.UpdateCompany(ctx, state.RecordID, props)
	default:
		mode = model.CRMUpdateSuggest
		err = p.crm.SuggestUpdate(ctx, state.RecordID, props)
	}
	if err != nil {
		metrics.ObserveCRMWrite(string(mode), "error")
		log.Warn("pipeline: crm write-back failed", zap.String("mode", string(mode)), zap.Error(err))
		return
	}
	metrics.ObserveCRMWrite(string(mode), "ok")
	log.Info("pipeline: crm write-back done", zap.String("mode", string(mode)))
}
