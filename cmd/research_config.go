package main

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dossier-cli/internal/model"
)

// loadResearchConfig reads a research config YAML file, fills defaults and
// validates it.
func loadResearchConfig(path string) (model.ResearchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ResearchConfig{}, eris.Wrap(err, "read research config")
	}
	var rc model.ResearchConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return model.ResearchConfig{}, eris.Wrap(err, "parse research config")
	}
	rc = rc.WithDefaults()
	if err := rc.Validate(); err != nil {
		return model.ResearchConfig{}, err
	}
	return rc, nil
}
