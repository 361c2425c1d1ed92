// Package registry resolves ICP ruleset identifiers to their definitions.
package registry

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/pkg/notion"
)

// Ruleset describes an ideal customer profile.
type Ruleset struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Definition string   `yaml:"definition" json:"definition"`
	Criteria   []string `yaml:"criteria" json:"criteria"`
}

// Render formats the ruleset for inclusion in a prompt.
func (r *Ruleset) Render() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if r.Name != "" {
		b.WriteString(r.Name)
		b.WriteString("\n")
	}
	if r.Definition != "" {
		b.WriteString(r.Definition)
		b.WriteString("\n")
	}
	for _, c := range r.Criteria {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// Resolver looks up a ruleset by id. It returns nil, nil when the id is unknown.
type Resolver interface {
	Resolve(ctx context.Context, id string) (*Ruleset, error)
}

// Chain tries resolvers in order and returns the first match. Resolver
// errors are logged and skipped.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, id string) (*Ruleset, error) {
	for _, r := range c {
		rs, err := r.Resolve(ctx, id)
		if err != nil {
			zap.L().Warn("registry: resolver failed", zap.String("ruleset_id", id), zap.Error(err))
			continue
		}
		if rs != nil {
			return rs, nil
		}
	}
	return nil, nil
}

// ResolveOrBare resolves id, falling back to a ruleset carrying only the
// identifier when r is nil, the id is unknown, or resolution fails.
func ResolveOrBare(ctx context.Context, r Resolver, id string) *Ruleset {
	bare := &Ruleset{ID: id}
	if r == nil || id == "" {
		return bare
	}
	rs, err := r.Resolve(ctx, id)
	if err != nil {
		zap.L().Warn("registry: resolve failed, using bare id", zap.String("ruleset_id", id), zap.Error(err))
		return bare
	}
	if rs == nil {
		zap.L().Debug("registry: unknown ruleset, using bare id", zap.String("ruleset_id", id))
		return bare
	}
	return rs
}

// New builds a resolver chain from config: the YAML file first, then Notion.
// It returns nil when neither source is configured.
func New(cfg *config.Config) (Resolver, error) {
	var chain Chain
	if cfg.Registry.RulesetFile != "" {
		fr, err := LoadFile(cfg.Registry.RulesetFile)
		if err != nil {
			return nil, err
		}
		chain = append(chain, fr)
	}
	if cfg.Notion.Token != "" && cfg.Notion.RulesetDB != "" {
		chain = append(chain, NewNotionResolver(notion.NewClient(cfg.Notion.Token), cfg.Notion.RulesetDB))
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}
