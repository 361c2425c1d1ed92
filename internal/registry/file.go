package registry

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FileResolver serves rulesets loaded from a YAML file of the form
//
//	rulesets:
//	  - id: icp_saas_midmarket
//	    name: Mid-market SaaS
//	    definition: ...
//	    criteria: [...]
type FileResolver struct {
	byID map[string]Ruleset
}

type rulesetFile struct {
	Rulesets []Ruleset `yaml:"rulesets"`
}

// LoadFile reads rulesets from path.
func LoadFile(path string) (*FileResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read ruleset file")
	}
	return ParseFile(data)
}

// ParseFile parses ruleset YAML. Entries without an id are rejected.
func ParseFile(data []byte) (*FileResolver, error) {
	var f rulesetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal ruleset file")
	}
	byID := make(map[string]Ruleset, len(f.Rulesets))
	for i, rs := range f.Rulesets {
		if rs.ID == "" {
			return nil, eris.Errorf("registry: ruleset %d has no id", i)
		}
		byID[rs.ID] = rs
	}
	return &FileResolver{byID: byID}, nil
}

// Resolve implements Resolver.
func (f *FileResolver) Resolve(_ context.Context, id string) (*Ruleset, error) {
	rs, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &rs, nil
}
