// Package reasoning wraps the language model behind an opaque
// prompt-in, text-out interface with typed failures.
package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/internal/metrics"
	"github.com/sells-group/dossier-cli/pkg/anthropic"
)

// Kind classifies a reasoning failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindEmpty     Kind = "empty"
)

// Error is returned for every failed Complete call.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reasoning: %s failure (HTTP %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reasoning: %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options tune a single completion.
type Options struct {
	Temperature float64
	JSONMode    bool
	MaxTokens   int64
	// Label names the prompt in logs and metrics.
	Label string
}

// Reasoner turns a prompt into model text.
type Reasoner interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

const jsonSystemPrompt = "You are a B2B go-to-market analyst. Respond with a single valid JSON object and nothing else."

// Anthropic implements Reasoner with the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropic creates a Reasoner. timeout bounds each call; zero leaves the
// caller's deadline alone.
func NewAnthropic(client anthropic.Client, model string, maxTokens int64, timeout time.Duration) *Anthropic {
	return &Anthropic{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// New builds the reasoner from config. It returns nil when no API key is
// configured so callers can take the skipped-scoring path.
func New(cfg config.AnthropicConfig) Reasoner {
	if cfg.Key == "" {
		return nil
	}
	return NewAnthropic(anthropic.NewClient(cfg.Key), cfg.Model, cfg.MaxTokens, cfg.Timeout())
}

// Complete implements Reasoner.
func (a *Anthropic) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}
	temp := opts.Temperature

	req := anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}
	if opts.JSONMode {
		req.System = []anthropic.SystemBlock{{Text: jsonSystemPrompt}}
	}

	start := time.Now()
	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		metrics.ObserveReasoning(opts.Label, "error", time.Since(start))
		if code := anthropic.StatusCode(err); code != 0 {
			return "", &Error{Kind: KindStatus, StatusCode: code, Err: err}
		}
		return "", &Error{Kind: KindTransport, Err: err}
	}
	metrics.ObserveReasoning(opts.Label, "ok", time.Since(start))
	resp.Usage.LogCost(a.model, opts.Label)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &Error{Kind: KindEmpty, Err: eris.Errorf("reasoning: empty response (stop_reason=%s)", resp.StopReason)}
	}
	if resp.StopReason == "max_tokens" {
		zap.L().Warn("reasoning: response hit max_tokens",
			zap.String("prompt", opts.Label),
			zap.Int64("max_tokens", maxTokens),
		)
	}
	return text, nil
}
