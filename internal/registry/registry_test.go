package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	notionmocks "github.com/sells-group/dossier-cli/pkg/notion/mocks"
)

func init() {
	// Replace global logger with no-op for tests (suppress warning output).
	zap.ReplaceGlobals(zap.NewNop())
}

const rulesetYAML = `
rulesets:
  - id: icp_saas_midmarket
    name: Mid-market SaaS
    definition: B2B software companies with 200-2000 employees selling to US buyers.
    criteria:
      - Has a self-serve pricing page
      - Hiring sales roles
  - id: icp_fintech
    definition: Regulated payments and lending companies.
`

func makeRulesetPage(id, rulesetID, name, definition string, criteria []string) notionapi.Page {
	props := make(notionapi.Properties)
	props[propRulesetID] = &notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{PlainText: rulesetID}},
	}
	props[propName] = &notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{PlainText: name}},
	}
	if definition != "" {
		props[propDefinition] = &notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{{PlainText: definition}},
		}
	}
	if len(criteria) > 0 {
		opts := make([]notionapi.Option, len(criteria))
		for i, c := range criteria {
			opts[i] = notionapi.Option{Name: c}
		}
		props[propCriteria] = &notionapi.MultiSelectProperty{
			Type:        notionapi.PropertyTypeMultiSelect,
			MultiSelect: opts,
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func TestParseFile(t *testing.T) {
	fr, err := ParseFile([]byte(rulesetYAML))
	require.NoError(t, err)

	rs, err := fr.Resolve(context.Background(), "icp_saas_midmarket")
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, "Mid-market SaaS", rs.Name)
	assert.Len(t, rs.Criteria, 2)

	missing, err := fr.Resolve(context.Background(), "icp_unknown")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestParseFile_Errors(t *testing.T) {
	_, err := ParseFile([]byte("rulesets: [unterminated"))
	assert.ErrorContains(t, err, "unmarshal ruleset file")

	_, err = ParseFile([]byte("rulesets:\n  - name: nameless\n"))
	assert.ErrorContains(t, err, "has no id")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rulesets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesetYAML), 0o644))

	fr, err := LoadFile(path)
	require.NoError(t, err)
	rs, _ := fr.Resolve(context.Background(), "icp_fintech")
	require.NotNil(t, rs)
	assert.Equal(t, "Regulated payments and lending companies.", rs.Definition)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read ruleset file")
}

func TestRulesetRender(t *testing.T) {
	rs := &Ruleset{
		ID:         "icp_x",
		Name:       "X",
		Definition: "Def.",
		Criteria:   []string{"one", "two"},
	}
	assert.Equal(t, "X\nDef.\n- one\n- two", rs.Render())
	assert.Empty(t, (&Ruleset{ID: "bare"}).Render())

	var nilRS *Ruleset
	assert.Empty(t, nilRS.Render())
}

func TestNotionResolver_Resolve(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "icp-db", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == propRulesetID && pf.RichText != nil && pf.RichText.Equals == "icp_saas_midmarket"
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			makeRulesetPage("p1", "icp_saas_midmarket", "Mid-market SaaS", "B2B software", []string{"Pricing page"}),
		},
	}, nil).Once()

	rs, err := NewNotionResolver(mc, "icp-db").Resolve(ctx, "icp_saas_midmarket")
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, Ruleset{
		ID:         "icp_saas_midmarket",
		Name:       "Mid-market SaaS",
		Definition: "B2B software",
		Criteria:   []string{"Pricing page"},
	}, *rs)
}

func TestNotionResolver_SkipsMalformed(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "icp-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{
				makeRulesetPage("p1", "icp_x", "Empty", "", nil),
				makeRulesetPage("p2", "", "Second", "", []string{"crit"}),
			},
		}, nil).Once()

	rs, err := NewNotionResolver(mc, "icp-db").Resolve(ctx, "icp_x")
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, "Second", rs.Name)
	assert.Equal(t, "icp_x", rs.ID)
}

func TestNotionResolver_NotFoundAndError(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "icp-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	rs, err := NewNotionResolver(mc, "icp-db").Resolve(ctx, "icp_missing")
	assert.NoError(t, err)
	assert.Nil(t, rs)

	mc.On("QueryDatabase", ctx, "icp-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()
	_, err = NewNotionResolver(mc, "icp-db").Resolve(ctx, "icp_missing")
	assert.ErrorContains(t, err, "registry: notion lookup")
}

type errResolver struct{}

func (errResolver) Resolve(context.Context, string) (*Ruleset, error) { return nil, assert.AnError }

func TestChain_FallsThrough(t *testing.T) {
	fr, err := ParseFile([]byte(rulesetYAML))
	require.NoError(t, err)

	chain := Chain{errResolver{}, fr}
	rs, err := chain.Resolve(context.Background(), "icp_fintech")
	require.NoError(t, err)
	require.NotNil(t, rs)
	assert.Equal(t, "icp_fintech", rs.ID)

	rs, err = chain.Resolve(context.Background(), "icp_missing")
	assert.NoError(t, err)
	assert.Nil(t, rs)
}

func TestResolveOrBare(t *testing.T) {
	ctx := context.Background()
	fr, err := ParseFile([]byte(rulesetYAML))
	require.NoError(t, err)

	assert.Equal(t, &Ruleset{ID: "icp_x"}, ResolveOrBare(ctx, nil, "icp_x"))
	assert.Equal(t, &Ruleset{ID: "icp_x"}, ResolveOrBare(ctx, fr, "icp_x"))
	assert.Equal(t, &Ruleset{ID: "icp_x"}, ResolveOrBare(ctx, errResolver{}, "icp_x"))
	assert.Equal(t, "Mid-market SaaS", ResolveOrBare(ctx, fr, "icp_saas_midmarket").Name)
	assert.Equal(t, &Ruleset{}, ResolveOrBare(ctx, fr, ""))
}

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	r, err := New(cfg)
	require.NoError(t, err)
	assert.Nil(t, r)

	path := filepath.Join(t.TempDir(), "rulesets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rulesetYAML), 0o644))
	cfg.Registry.RulesetFile = path
	cfg.Notion.Token = "secret_x"
	cfg.Notion.RulesetDB = "icp-db"

	r, err = New(cfg)
	require.NoError(t, err)
	chain, ok := r.(Chain)
	require.True(t, ok)
	assert.Len(t, chain, 2)

	cfg.Registry.RulesetFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(cfg)
	assert.Error(t, err)
}
