package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dossier-cli/internal/fetch"
	"github.com/sells-group/dossier-cli/internal/model"
)

// Extractor fills evidence excerpts by fetching each source URL.
type Extractor struct {
	fetcher     fetch.Fetcher
	concurrency int
}

// NewExtractor creates an Extractor running at most concurrency fetches at
// once. concurrency below 1 is treated as 1.
func NewExtractor(f fetch.Fetcher, concurrency int) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{fetcher: f, concurrency: concurrency}
}

// Extract fetches every evidence item. The output has one item per input
// item in the same order; a failed fetch marks only its own item.
func (x *Extractor) Extract(ctx context.Context, in model.RunState) (model.RunState, error) {
	out, err := in.Advance(model.RunStatusExtracting)
	if err != nil {
		return in, err
	}

	var g errgroup.Group
	g.SetLimit(x.concurrency)
	for i := range out.Evidence {
		g.Go(func() error {
			out.Evidence[i] = x.extractOne(ctx, out.Evidence[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, e := range out.Evidence {
		if e.Reliability == model.ReliabilityLow {
			failed++
		}
	}
	zap.L().Info("extract: sources fetched",
		zap.String("domain", out.Domain),
		zap.Int("total", len(out.Evidence)),
		zap.Int("failed", failed),
	)
	return out, nil
}

func (x *Extractor) extractOne(ctx context.Context, item model.EvidenceItem) model.EvidenceItem {
	res := x.fetcher.Fetch(ctx, item.URL)
	if !res.OK() {
		excerpt := model.FetchFailedExcerpt
		item.Excerpt = &excerpt
		item.Reliability = model.ReliabilityLow

		fields := []zap.Field{zap.String("url", item.URL)}
		if res.Error != nil {
			fields = append(fields,
				zap.Int("status_code", res.Error.StatusCode),
				zap.String("message", res.Error.Message),
				zap.String("block", string(res.Error.Block)),
			)
		}
		zap.L().Debug("extract: fetch failed", fields...)
		return item
	}

	excerpt := model.Truncate(res.Content, model.MaxExcerptRunes)
	item.Excerpt = &excerpt
	item.ExtractMethod = res.Method
	item.ResolvedURL = res.ResolvedURL
	return item
}
