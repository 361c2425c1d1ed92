package pipeline

import (
	"fmt"
	"strings"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/registry"
)

const evidenceBlockRunes = 2000

// evidenceBlock renders every evidence item that has an excerpt as a
// citable source section. Sections are separated by a blank line.
func evidenceBlock(items []model.EvidenceItem) string {
	parts := make([]string, 0, len(items))
	for _, e := range items {
		if !e.HasExcerpt() {
			continue
		}
		parts = append(parts, fmt.Sprintf("SOURCE [%s] (%s - %s):\n%s",
			e.EvidenceID, e.SourceType, e.URL, model.Truncate(*e.Excerpt, evidenceBlockRunes)))
	}
	return strings.Join(parts, "\n\n")
}

const fitPromptTemplate = `Analyze the following account evidence and determine the Fit Tier (A, B, C, D).

CONTEXT:
ICP Ruleset: %s
ICP Definition:
%s

We are selling: %s
Target Persona: %s

EXTRACTED SIGNALS:
%s

EVIDENCE:
%s

DIAGNOSIS INSTRUCTIONS:
- Tier A: Perfect match. Has budget (funding), intent (hiring) and tech fit.
- Tier B: Good match. Missing one key signal.
- Tier C: Low match. Too small or wrong industry.
- Tier D: Disqualified. Competitor or unrelated.
Cite the SOURCE ids that support your diagnosis in evidence_ids.

OUTPUT SCHEMA (JSON):
{
  "fit_tier": "A",
  "diagnosis_label": "High Fit - Scaling Pain",
  "reasoning_bullets": ["Reason 1", "Reason 2"],
  "confidence": 0.8,
  "evidence_ids": ["ev_..."]
}`

func fitPrompt(cfg model.ResearchConfig, rs *registry.Ruleset, block string, signals []model.Signal) string {
	definition := rs.Render()
	if definition == "" {
		definition = "(no definition on file)"
	}
	return fmt.Sprintf(fitPromptTemplate,
		orNone(cfg.ICPRulesetID),
		definition,
		orNone(cfg.Proposition),
		orNone(cfg.Persona),
		renderSignals(signals),
		orNone(block),
	)
}

const signalPromptTemplate = `You are an expert Revenue Operations analyst.
Analyze the following evidence from %s and extract GTM signals.

CONTEXT:
We are selling: %s
Target Persona: %s

RULES:
1. Only extract signals that are highly relevant to our proposition.
2. Signal types allowed: %s.
3. Cite the SOURCE id of every signal in evidence_ids. Leave evidence_ids empty only for inferred signals and lower their confidence.

EVIDENCE:
%s

OUTPUT SCHEMA (JSON):
{
  "signals": [
    {
      "signal_type": "EXEC_HIRE",
      "label": "Hiring VP Sales",
      "value": "VP Sales",
      "confidence": 0.9,
      "evidence_ids": ["ev_..."]
    }
  ]
}`

func signalPrompt(domain string, cfg model.ResearchConfig, block string) string {
	types := model.AllSignalTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return fmt.Sprintf(signalPromptTemplate,
		domain,
		orNone(cfg.Proposition),
		orNone(cfg.Persona),
		strings.Join(names, ", "),
		block,
	)
}

func renderSignals(signals []model.Signal) string {
	if len(signals) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, s := range signals {
		fmt.Fprintf(&b, "- %s: %s", s.Type, s.Label)
		if s.Value != "" {
			fmt.Fprintf(&b, " (%s)", s.Value)
		}
		if len(s.EvidenceIDs) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(s.EvidenceIDs, ", "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
