package pipeline

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dossier-cli/internal/model"
)

// Diagnosis defaults applied when the model omits a field.
const (
	defaultDiagnosisLabel = "Analyzed"
	defaultConfidence     = 0.0
)

// ErrInvalidResponse is returned when model output cannot be used.
var ErrInvalidResponse = eris.New("pipeline: invalid model response")

// fitResponse is the model's fit judgment. Pointer fields distinguish an
// omitted value from a zero value.
type fitResponse struct {
	FitTier          *string   `json:"fit_tier"`
	DiagnosisLabel   *string   `json:"diagnosis_label"`
	ReasoningBullets *[]string `json:"reasoning_bullets"`
	Confidence       *float64  `json:"confidence"`
	EvidenceIDs      []string  `json:"evidence_ids"`
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON value delimited by lb and rb.
func cleanJSON(text string, lb, rb byte) string {
	text = stripFences(text)
	start := strings.IndexByte(text, lb)
	end := strings.LastIndexByte(text, rb)
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

// parseFit decodes and validates a fit response. Anything other than a JSON
// object, a tier outside A-D or a confidence outside [0,1] is rejected.
func parseFit(text string) (*fitResponse, error) {
	body := cleanJSON(text, '{', '}')
	if !strings.HasPrefix(body, "{") {
		return nil, eris.Wrapf(ErrInvalidResponse, "fit response is not a json object: %q", model.Truncate(body, 80))
	}
	var r fitResponse
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, eris.Wrapf(ErrInvalidResponse, "decode fit json: %v", err)
	}

	if r.FitTier != nil {
		tier := model.FitTier(strings.ToUpper(strings.TrimSpace(*r.FitTier)))
		switch {
		case tier == "":
			r.FitTier = nil
		case !tier.IsValid():
			return nil, eris.Wrapf(ErrInvalidResponse, "fit_tier %q is not one of A, B, C, D", *r.FitTier)
		default:
			s := string(tier)
			r.FitTier = &s
		}
	}

	if r.Confidence != nil {
		c := *r.Confidence
		if math.IsNaN(c) || c < 0 || c > 1 {
			return nil, eris.Wrapf(ErrInvalidResponse, "confidence %v is outside [0,1]", c)
		}
	}
	return &r, nil
}

// mergeDiagnosis fills omitted fields with defaults and keeps only evidence
// ids present in known.
func mergeDiagnosis(r *fitResponse, known map[string]struct{}) model.GTMDiagnosis {
	d := model.GTMDiagnosis{
		FitTier:          model.DefaultFitTier,
		DiagnosisLabel:   defaultDiagnosisLabel,
		ReasoningBullets: []string{},
		Confidence:       defaultConfidence,
		EvidenceIDs:      []string{},
	}
	if r == nil {
		return d
	}
	if r.FitTier != nil {
		d.FitTier = model.FitTier(*r.FitTier)
	}
	if r.DiagnosisLabel != nil && strings.TrimSpace(*r.DiagnosisLabel) != "" {
		d.DiagnosisLabel = strings.TrimSpace(*r.DiagnosisLabel)
	}
	if r.ReasoningBullets != nil {
		for _, b := range *r.ReasoningBullets {
			if b = strings.TrimSpace(b); b != "" {
				d.ReasoningBullets = append(d.ReasoningBullets, b)
			}
		}
	}
	if r.Confidence != nil {
		d.Confidence = *r.Confidence
	}
	d.EvidenceIDs = model.KnownCitations(r.EvidenceIDs, known)
	return d
}
