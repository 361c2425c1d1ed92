// Package model defines the data types threaded through the dossier pipeline.
package model

import (
	"slices"
	"time"

	"github.com/rotisserie/eris"
)

// CRMUpdateMode controls how a finished dossier is written back to the CRM.
type CRMUpdateMode string

const (
	CRMUpdateAuto    CRMUpdateMode = "auto"
	CRMUpdateSuggest CRMUpdateMode = "suggest"
)

// IsValid reports whether m is a known update mode.
func (m CRMUpdateMode) IsValid() bool {
	return m == CRMUpdateAuto || m == CRMUpdateSuggest
}

// Refresh policy defaults.
const (
	DefaultTTLDays = 14
)

// DefaultForceRefreshSignals are the signal types that invalidate a cached dossier.
func DefaultForceRefreshSignals() []SignalType {
	return []SignalType{SignalFunding, SignalExecHire}
}

// RefreshPolicy describes how long a dossier stays fresh. A nil TTLDays
// takes the default; an explicit 0 disables cache hits.
type RefreshPolicy struct {
	TTLDays             *int         `json:"ttl_days,omitempty" yaml:"ttl_days" validate:"omitempty,gte=0"`
	ForceRefreshSignals []SignalType `json:"force_refresh_signals" yaml:"force_refresh_signals"`
}

// TTL returns the freshness window, or 0 when TTLDays is unset or not positive.
func (p RefreshPolicy) TTL() time.Duration {
	if p.TTLDays == nil || *p.TTLDays <= 0 {
		return 0
	}
	return time.Duration(*p.TTLDays) * 24 * time.Hour
}

// Days returns a pointer to n, for building a RefreshPolicy.
func Days(n int) *int { return &n }

// ForcesRefresh reports whether a signal of type t invalidates a cached dossier.
func (p RefreshPolicy) ForcesRefresh(t SignalType) bool {
	return slices.Contains(p.ForceRefreshSignals, t)
}

// ResearchConfig describes what a good fit means for one research request.
// It is created once per request and never mutated by the pipeline.
type ResearchConfig struct {
	ConfigID      string        `json:"config_id" yaml:"config_id" validate:"required"`
	Proposition   string        `json:"proposition" yaml:"proposition"`
	Persona       string        `json:"persona" yaml:"persona"`
	ICPRulesetID  string        `json:"icp_ruleset_id" yaml:"icp_ruleset_id"`
	RefreshPolicy RefreshPolicy `json:"refresh_policy" yaml:"refresh_policy"`
	CRMUpdateMode CRMUpdateMode `json:"crm_update_mode" yaml:"crm_update_mode" validate:"omitempty,oneof=auto suggest"`
}

// WithDefaults returns a copy with unset fields filled in.
func (c ResearchConfig) WithDefaults() ResearchConfig {
	out := c
	if out.RefreshPolicy.TTLDays == nil {
		out.RefreshPolicy.TTLDays = Days(DefaultTTLDays)
	} else {
		out.RefreshPolicy.TTLDays = Days(*out.RefreshPolicy.TTLDays)
	}
	if out.RefreshPolicy.ForceRefreshSignals == nil {
		out.RefreshPolicy.ForceRefreshSignals = DefaultForceRefreshSignals()
	} else {
		out.RefreshPolicy.ForceRefreshSignals = slices.Clone(out.RefreshPolicy.ForceRefreshSignals)
	}
	if out.CRMUpdateMode == "" {
		out.CRMUpdateMode = CRMUpdateSuggest
	}
	return out
}

// ErrInvalidConfig is returned when a research config fails validation.
var ErrInvalidConfig = eris.New("model: invalid research config")

// Validate checks the config for missing or unknown values.
func (c ResearchConfig) Validate() error {
	if c.ConfigID == "" {
		return eris.Wrap(ErrInvalidConfig, "config_id is required")
	}
	if c.CRMUpdateMode != "" && !c.CRMUpdateMode.IsValid() {
		return eris.Wrapf(ErrInvalidConfig, "unknown crm_update_mode %q", c.CRMUpdateMode)
	}
	if c.RefreshPolicy.TTLDays != nil && *c.RefreshPolicy.TTLDays < 0 {
		return eris.Wrap(ErrInvalidConfig, "refresh_policy.ttl_days must not be negative")
	}
	for _, s := range c.RefreshPolicy.ForceRefreshSignals {
		if !s.IsValid() {
			return eris.Wrapf(ErrInvalidConfig, "unknown force_refresh signal %q", s)
		}
	}
	return nil
}
