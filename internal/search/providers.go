package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dossier-cli/pkg/jina"
	"github.com/sells-group/dossier-cli/pkg/perplexity"
	"github.com/sells-group/dossier-cli/pkg/tavily"
)

// Tavily searches through the Tavily API.
type Tavily struct {
	client tavily.Client
}

// NewTavily wraps a Tavily client.
func NewTavily(client tavily.Client) *Tavily {
	return &Tavily{client: client}
}

// Name implements Searcher.
func (t *Tavily) Name() string { return "tavily" }

// Search implements Searcher.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	resp, err := t.client.Search(ctx, tavily.SearchRequest{
		Query:      query,
		MaxResults: max(maxResults, 1),
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: tavily")
	}
	out := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Result{URL: r.URL, Title: r.Title, Content: r.Content, Score: r.Score})
	}
	return truncate(out, maxResults), nil
}

// Jina searches through Jina Search (s.jina.ai).
type Jina struct {
	client jina.Client
}

// NewJina wraps a Jina client.
func NewJina(client jina.Client) *Jina {
	return &Jina{client: client}
}

// Name implements Searcher.
func (j *Jina) Name() string { return "jina" }

// Search implements Searcher. Jina does not score results, so scores decay
// with rank.
func (j *Jina) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	resp, err := j.client.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "search: jina")
	}
	out := make([]Result, 0, len(resp.Data))
	for i, r := range resp.Data {
		content := r.Description
		if content == "" {
			content = r.Content
		}
		out = append(out, Result{
			URL:     r.URL,
			Title:   r.Title,
			Content: content,
			Score:   1 / float64(i+1),
		})
	}
	return truncate(out, maxResults), nil
}

const perplexitySearchPrompt = `Search the web for: %s

Answer in two or three sentences and cite the most relevant sources.`

// Perplexity uses the cited sources of a Perplexity answer as search hits.
type Perplexity struct {
	client perplexity.Client
}

// NewPerplexity wraps a Perplexity client.
func NewPerplexity(client perplexity.Client) *Perplexity {
	return &Perplexity{client: client}
}

// Name implements Searcher.
func (p *Perplexity) Name() string { return "perplexity" }

// Search implements Searcher.
func (p *Perplexity) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	temp := 0.0
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf(perplexitySearchPrompt, query)},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: perplexity")
	}

	var answer string
	if len(resp.Choices) > 0 {
		answer = strings.TrimSpace(resp.Choices[0].Message.Content)
	}

	titles := make(map[string]string, len(resp.SearchResults))
	for _, sr := range resp.SearchResults {
		titles[sr.URL] = sr.Title
	}

	urls := resp.SourceURLs()
	out := make([]Result, 0, len(urls))
	for i, u := range urls {
		out = append(out, Result{
			URL:     u,
			Title:   titles[u],
			Content: answer,
			Score:   1 / float64(i+1),
		})
	}
	return truncate(out, maxResults), nil
}

// Mock returns a fixed placeholder hit. It stands in when no search
// credential is configured.
type Mock struct{}

// NewMock creates the mock searcher.
func NewMock() *Mock { return &Mock{} }

// Name implements Searcher.
func (m *Mock) Name() string { return "mock" }

// Search implements Searcher.
func (m *Mock) Search(_ context.Context, _ string, _ int) ([]Result, error) {
	return []Result{{
		URL:     "https://example.com",
		Title:   "Mock Result",
		Content: "Mock Content",
		Score:   1.0,
	}}, nil
}
