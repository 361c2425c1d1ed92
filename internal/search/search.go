// Package search resolves research queries to ranked URLs through a
// configurable web search provider.
package search

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/pkg/jina"
	"github.com/sells-group/dossier-cli/pkg/perplexity"
	"github.com/sells-group/dossier-cli/pkg/tavily"
)

// Result is one ranked search hit.
type Result struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Searcher runs a query and returns at most maxResults hits in rank order.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// New builds the searcher selected by search.provider. A provider without a
// credential degrades to the mock searcher. The returned searcher is rate
// limited and bounds each query by search.timeout_secs.
func New(cfg *config.Config) Searcher {
	var s Searcher
	switch cfg.Search.Provider {
	case "jina":
		// Jina Search requires a key even though Reader does not.
		if cfg.Jina.Key != "" {
			s = NewJina(jina.NewClient(cfg.Jina.Key,
				jina.WithBaseURL(cfg.Jina.BaseURL),
				jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
			))
		}
	case "perplexity":
		if cfg.Perplexity.Key != "" {
			s = NewPerplexity(perplexity.NewClient(cfg.Perplexity.Key,
				perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
				perplexity.WithModel(cfg.Perplexity.Model),
			))
		}
	default:
		if cfg.Tavily.Key != "" {
			s = NewTavily(tavily.NewClient(cfg.Tavily.Key,
				tavily.WithBaseURL(cfg.Tavily.BaseURL),
				tavily.WithSearchDepth(cfg.Tavily.SearchDepth),
			))
		}
	}
	if s == nil {
		zap.L().Warn("search: no credential for provider, using mock results",
			zap.String("provider", cfg.Search.Provider),
		)
		s = NewMock()
	}
	return NewLimited(s, cfg.Search.RateLimit, cfg.Search.Timeout())
}

// Limited wraps a Searcher with a request rate limit and a per-query timeout.
type Limited struct {
	next    Searcher
	limiter *rate.Limiter
	timeout time.Duration
}

// NewLimited wraps next. A non-positive rps disables rate limiting and a
// non-positive timeout leaves the caller's deadline alone.
func NewLimited(next Searcher, rps float64, timeout time.Duration) *Limited {
	l := &Limited{next: next, timeout: timeout}
	if rps > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return l
}

// Name implements Searcher.
func (l *Limited) Name() string { return l.next.Name() }

// Search implements Searcher.
func (l *Limited) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "search: rate limiter")
		}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.next.Search(ctx, query, maxResults)
}

// truncate caps results at n, treating n <= 0 as 1.
func truncate(results []Result, n int) []Result {
	if n <= 0 {
		n = 1
	}
	if len(results) > n {
		return results[:n]
	}
	return results
}
