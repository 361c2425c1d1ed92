// Package fetch retrieves page content for evidence extraction: a direct
// request first, then a single attempt through a rendering proxy.
package fetch

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/internal/metrics"
	"github.com/sells-group/dossier-cli/internal/model"
)

// Status is the outcome of a fetch.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 2 << 20
)

// userAgents are rotated per request to avoid trivial bot blocking.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// ErrorInfo carries whatever diagnostic a failed fetch produced.
type ErrorInfo struct {
	StatusCode int       `json:"status_code,omitempty"`
	Message    string    `json:"message,omitempty"`
	Block      BlockType `json:"block,omitempty"`
}

// Result is the outcome of fetching one URL.
type Result struct {
	Content     string
	Status      Status
	Method      model.ExtractMethod
	ResolvedURL string
	Error       *ErrorInfo
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Fetcher retrieves page content for a URL. Fetch never returns a Go error;
// failures are reported through Result.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}

// HTTPFetcher issues a direct GET and falls back to a Proxy on blocked or
// failed requests.
type HTTPFetcher struct {
	client       *http.Client
	proxy        Proxy
	timeout      time.Duration
	maxBodyBytes int64
	pickUA       func() string
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient sets the client used for direct requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = hc }
}

// WithTimeout bounds each attempt (direct and proxy separately).
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodyBytes caps how much of a direct response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodyBytes = n
		}
	}
}

// WithUserAgent pins the user agent instead of rotating.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.pickUA = func() string { return ua } }
}

// NewHTTPFetcher creates a fetcher. proxy may be nil, in which case blocked
// requests fail without a fallback attempt.
func NewHTTPFetcher(proxy Proxy, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client:       &http.Client{},
		proxy:        proxy,
		timeout:      defaultTimeout,
		maxBodyBytes: defaultMaxBodyBytes,
		pickUA: func() string {
			return userAgents[rand.IntN(len(userAgents))]
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// New builds an HTTPFetcher from application config.
func New(cfg *config.Config) *HTTPFetcher {
	return NewHTTPFetcher(NewProxy(cfg),
		WithTimeout(cfg.Fetch.Timeout()),
		WithMaxBodyBytes(cfg.Fetch.MaxBodyBytes),
	)
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) Result {
	res, fallback := f.direct(ctx, url)
	if !fallback {
		metrics.ObserveFetch(string(model.ExtractDirect), string(res.Status), len(res.Content))
		return res
	}
	if f.proxy == nil {
		metrics.ObserveFetch(string(model.ExtractDirect), string(res.Status), 0)
		return res
	}

	zap.L().Debug("fetch: proxy fallback",
		zap.String("url", url),
		zap.String("proxy", f.proxy.Name()),
		zap.Int("status", res.Error.StatusCode),
		zap.String("block", string(res.Error.Block)),
	)

	out := f.viaProxy(ctx, url, res.Error)
	metrics.ObserveFetch(string(model.ExtractProxyFallback), string(out.Status), len(out.Content))
	return out
}

// direct performs the first attempt. The bool reports whether the caller
// should try the proxy.
func (f *HTTPFetcher) direct(ctx context.Context, url string) (Result, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failed(0, "fetch: create request: "+err.Error(), BlockNone), false
	}
	req.Header.Set("User-Agent", f.pickUA())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return failed(0, err.Error(), BlockNone), true
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return failed(resp.StatusCode, "fetch: read body: "+err.Error(), BlockNone), true
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{
			Content:     decodeBody(resp.Header.Get("Content-Type"), body),
			Status:      StatusSuccess,
			Method:      model.ExtractDirect,
			ResolvedURL: resp.Request.URL.String(),
		}, false
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable:
		block := classifyRefusal(resp.StatusCode, resp.Header, body)
		return failed(resp.StatusCode, http.StatusText(resp.StatusCode), block), true
	default:
		return failed(resp.StatusCode, http.StatusText(resp.StatusCode), BlockNone), false
	}
}

func (f *HTTPFetcher) viaProxy(ctx context.Context, url string, prev *ErrorInfo) Result {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	content, err := f.proxy.Render(ctx, url)
	if err != nil {
		zap.L().Debug("fetch: proxy failed",
			zap.String("url", url),
			zap.String("proxy", f.proxy.Name()),
			zap.Error(err),
		)
		return failed(proxyStatus(err), err.Error(), prev.Block)
	}
	return Result{
		Content:     content,
		Status:      StatusSuccess,
		Method:      model.ExtractProxyFallback,
		ResolvedURL: url,
	}
}

func failed(code int, msg string, block BlockType) Result {
	return Result{
		Status: StatusError,
		Error: &ErrorInfo{
			StatusCode: code,
			Message:    msg,
			Block:      block,
		},
	}
}
