package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/registry"
)

func TestEvidenceBlock(t *testing.T) {
	items := []model.EvidenceItem{
		{EvidenceID: "ev_1", SourceType: model.SourceHomepage, URL: "https://acme.com", Excerpt: strPtr("Welcome")},
		{EvidenceID: "ev_2", SourceType: model.SourceNews, URL: "https://news/x"},
		{EvidenceID: "ev_3", SourceType: model.SourceCareers, URL: "https://acme.com/jobs", Excerpt: strPtr("")},
		{EvidenceID: "ev_4", SourceType: model.SourceOther, URL: "https://acme.com/pricing", Excerpt: strPtr(model.FetchFailedExcerpt)},
	}

	got := evidenceBlock(items)
	want := "SOURCE [ev_1] (HOMEPAGE - https://acme.com):\nWelcome\n\n" +
		"SOURCE [ev_4] (OTHER - https://acme.com/pricing):\nFailed to fetch"
	assert.Equal(t, want, got)
}

func TestEvidenceBlock_Truncates(t *testing.T) {
	long := strings.Repeat("ß", 3000)
	got := evidenceBlock([]model.EvidenceItem{
		{EvidenceID: "ev_1", SourceType: model.SourceHomepage, URL: "https://acme.com", Excerpt: &long},
	})
	body := strings.SplitN(got, "\n", 2)[1]
	assert.Equal(t, 2000, utf8.RuneCountInString(body))
}

func TestEvidenceBlock_Empty(t *testing.T) {
	assert.Equal(t, "", evidenceBlock(nil))
}

func TestFitPrompt(t *testing.T) {
	rs := &registry.Ruleset{ID: "icp_saas", Name: "SaaS mid-market", Definition: "B2B SaaS, 50-500 employees"}
	p := fitPrompt(testConfig(), rs, "SOURCE [ev_1] (HOMEPAGE - https://acme.com):\nhi", []model.Signal{
		{Type: model.SignalFunding, Label: "Series B", Value: "$40M", EvidenceIDs: []string{"ev_1"}},
	})

	assert.Contains(t, p, "ICP Ruleset: icp_saas_midmarket")
	assert.Contains(t, p, "B2B SaaS, 50-500 employees")
	assert.Contains(t, p, "SOURCE [ev_1]")
	assert.Contains(t, p, "- FUNDING: Series B ($40M) [ev_1]")
	assert.Contains(t, p, `"fit_tier"`)
	assert.Contains(t, p, `"evidence_ids"`)
}

func TestFitPrompt_BareRuleset(t *testing.T) {
	cfg := testConfig()
	p := fitPrompt(cfg, &registry.Ruleset{ID: cfg.ICPRulesetID}, "", nil)
	assert.Contains(t, p, "(no definition on file)")
	assert.Contains(t, p, "EXTRACTED SIGNALS:\n(none)")
}

func TestSignalPrompt(t *testing.T) {
	p := signalPrompt("acme.com", testConfig(), "SOURCE [ev_1] (HOMEPAGE - https://acme.com):\nhi")
	assert.Contains(t, p, "evidence from acme.com")
	assert.Contains(t, p, "Outbound automation for SaaS sales teams")
	assert.Contains(t, p, "PRODUCT_LAUNCH")
	assert.Contains(t, p, "SOURCE [ev_1]")
}
