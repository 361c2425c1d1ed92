package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/internal/reasoning"
)

type signalResponse struct {
	Type        string   `json:"signal_type"`
	Label       string   `json:"label"`
	Value       string   `json:"value"`
	Confidence  *float64 `json:"confidence"`
	EvidenceIDs []string `json:"evidence_ids"`
}

type signalEnvelope struct {
	Signals []signalResponse `json:"signals"`
}

// parseSignals decodes a signal list, accepting either a bare array or an
// object with a "signals" key. Unknown types and empty signals are dropped,
// confidence is clamped to [0,1] and citations outside known are removed.
// The result is never nil.
func parseSignals(text string, known map[string]struct{}) ([]model.Signal, error) {
	var raw []signalResponse

	body := stripFences(text)
	if i := strings.IndexAny(body, "[{"); i >= 0 && body[i] == '[' {
		if err := json.Unmarshal([]byte(cleanJSON(text, '[', ']')), &raw); err != nil {
			return nil, eris.Wrapf(ErrInvalidResponse, "decode signal list: %v", err)
		}
	} else {
		var env signalEnvelope
		if err := json.Unmarshal([]byte(cleanJSON(text, '{', '}')), &env); err != nil {
			return nil, eris.Wrapf(ErrInvalidResponse, "decode signals: %v", err)
		}
		raw = env.Signals
	}

	out := make([]model.Signal, 0, len(raw))
	for _, r := range raw {
		t := model.SignalType(strings.ToUpper(strings.TrimSpace(r.Type)))
		if !t.IsValid() {
			continue
		}
		label := strings.TrimSpace(r.Label)
		value := strings.TrimSpace(r.Value)
		if label == "" && value == "" {
			continue
		}
		if label == "" {
			label = value
		}
		var conf float64
		if r.Confidence != nil {
			conf = min(max(*r.Confidence, 0), 1)
		}
		out = append(out, model.Signal{
			Type:        t,
			Label:       label,
			Value:       value,
			Confidence:  conf,
			EvidenceIDs: model.KnownCitations(r.EvidenceIDs, known),
		})
	}
	return out, nil
}

// extractSignals asks the model for GTM signals. It never fails: errors are
// logged and yield an empty list.
func (s *Synthesizer) extractSignals(ctx context.Context, in model.RunState, block string) []model.Signal {
	if block == "" {
		return []model.Signal{}
	}
	log := zap.L().With(zap.String("domain", in.Domain))

	text, err := s.reasoner.Complete(ctx, signalPrompt(in.Domain, in.Config, block), reasoning.Options{
		Temperature: 0,
		JSONMode:    true,
		Label:       "signals",
	})
	if err != nil {
		log.Warn("synthesize: signal extraction failed", zap.Error(err))
		return []model.Signal{}
	}

	signals, err := parseSignals(text, model.EvidenceIDSet(in.Evidence))
	if err != nil {
		log.Warn("synthesize: signal response unusable", zap.Error(err))
		return []model.Signal{}
	}
	log.Debug("synthesize: signals extracted", zap.Int("count", len(signals)))
	return signals
}
