package fetch

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/pkg/firecrawl"
	"github.com/sells-group/dossier-cli/pkg/jina"
)

// Proxy renders a page through a third-party service that returns a cleaned
// text representation. Implementations make exactly one attempt.
type Proxy interface {
	Name() string
	Render(ctx context.Context, url string) (string, error)
}

// NewProxy builds the proxy selected by fetch.proxy. Validate has already
// rejected unknown names and a firecrawl proxy without a key.
func NewProxy(cfg *config.Config) Proxy {
	if cfg.Fetch.Proxy == "firecrawl" {
		return NewFirecrawlProxy(firecrawl.NewClient(cfg.Firecrawl.Key,
			firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL),
		))
	}
	return NewJinaProxy(jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	))
}

// JinaProxy renders pages through Jina Reader.
type JinaProxy struct {
	client jina.Client
}

// NewJinaProxy wraps a Jina client as a Proxy.
func NewJinaProxy(client jina.Client) *JinaProxy {
	return &JinaProxy{client: client}
}

// Name implements Proxy.
func (j *JinaProxy) Name() string { return "jina" }

// Render implements Proxy.
func (j *JinaProxy) Render(ctx context.Context, url string) (string, error) {
	resp, err := j.client.Read(ctx, url)
	if err != nil {
		return "", err
	}
	if resp.Code != 0 && resp.Code != 200 {
		return "", &jina.StatusError{Code: resp.Code}
	}
	content := strings.TrimSpace(resp.Data.Content)
	if content == "" {
		return "", eris.New("jina: empty content")
	}
	return content, nil
}

// FirecrawlProxy renders pages through Firecrawl's scrape endpoint.
type FirecrawlProxy struct {
	client firecrawl.Client
}

// NewFirecrawlProxy wraps a Firecrawl client as a Proxy.
func NewFirecrawlProxy(client firecrawl.Client) *FirecrawlProxy {
	return &FirecrawlProxy{client: client}
}

// Name implements Proxy.
func (f *FirecrawlProxy) Name() string { return "firecrawl" }

// Render implements Proxy.
func (f *FirecrawlProxy) Render(ctx context.Context, url string) (string, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", eris.New("firecrawl: scrape not successful")
	}
	content := strings.TrimSpace(resp.Data.Markdown)
	if content == "" {
		return "", eris.New("firecrawl: empty content")
	}
	return content, nil
}

// proxyStatus extracts the upstream HTTP code from a proxy error, or 0.
func proxyStatus(err error) int {
	var je *jina.StatusError
	if errors.As(err, &je) {
		return je.Code
	}
	var fe *firecrawl.APIError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
