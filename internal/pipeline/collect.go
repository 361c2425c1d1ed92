package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/metrics"
	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/search"
)

// sourceQuery is a search template and the source type its hits are tagged with.
type sourceQuery struct {
	format string
	source model.SourceType
}

var sourceQueries = []sourceQuery{
	{`site:%s "careers" OR "jobs"`, model.SourceCareers},
	{`site:%s "pricing"`, model.SourceOther},
	{`"%s" funding news`, model.SourceNews},
	{`"%s" tech stack`, model.SourceTechDetect},
}

// Queries returns the search queries issued for domain, in order.
func Queries(domain string) []string {
	out := make([]string, len(sourceQueries))
	for i, q := range sourceQueries {
		out[i] = fmt.Sprintf(q.format, domain)
	}
	return out
}

// Collector gathers candidate source URLs for a domain.
type Collector struct {
	searcher        search.Searcher
	resultsPerQuery int
	now             func() time.Time
	newID           func() string
}

// NewCollector creates a Collector. resultsPerQuery below 1 is treated as 1.
func NewCollector(s search.Searcher, resultsPerQuery int) *Collector {
	if resultsPerQuery < 1 {
		resultsPerQuery = 1
	}
	return &Collector{
		searcher:        s,
		resultsPerQuery: resultsPerQuery,
		now:             time.Now,
		newID:           newEvidenceID,
	}
}

func newEvidenceID() string {
	return "ev_" + uuid.NewString()
}

type candidate struct {
	url    string
	source model.SourceType
}

// Collect builds the run's evidence list: the homepage first, then search
// hits in query order. URLs are deduplicated with the first occurrence kept.
// A failed query is logged and skipped.
func (c *Collector) Collect(ctx context.Context, in model.RunState) (model.RunState, error) {
	out, err := in.Advance(model.RunStatusCollecting)
	if err != nil {
		return in, err
	}
	log := zap.L().With(zap.String("domain", out.Domain))

	candidates := []candidate{{url: model.HomepageURL(out.Domain), source: model.SourceHomepage}}
	for i, q := range Queries(out.Domain) {
		results, err := c.searcher.Search(ctx, q, c.resultsPerQuery)
		if err != nil {
			log.Warn("collect: search failed, skipping query",
				zap.String("query", q),
				zap.String("provider", c.searcher.Name()),
				zap.Error(err),
			)
			metrics.ObserveSearchFailure(c.searcher.Name())
			continue
		}
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			candidates = append(candidates, candidate{url: r.URL, source: sourceQueries[i].source})
		}
	}

	seenURL := make(map[string]struct{}, len(candidates))
	seenID := make(map[string]struct{}, len(candidates))
	out.Evidence = make([]model.EvidenceItem, 0, len(candidates))
	for _, cand := range candidates {
		if _, ok := seenURL[cand.url]; ok {
			continue
		}
		seenURL[cand.url] = struct{}{}

		id := c.newID()
		for {
			if _, clash := seenID[id]; !clash {
				break
			}
			id = c.newID()
		}
		seenID[id] = struct{}{}

		out.Evidence = append(out.Evidence, model.EvidenceItem{
			EvidenceID:  id,
			Domain:      out.Domain,
			SourceType:  cand.source,
			URL:         cand.url,
			RetrievedAt: c.now().UTC(),
			Reliability: model.ReliabilityMed,
		})
	}

	log.Info("collect: sources found", zap.Int("count", len(out.Evidence)))
	return out, nil
}
