// Package crm looks up and writes back account records in the CRM.
package crm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dossier-cli/internal/config"
	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/pkg/salesforce"
)

// CRM is the account system of record the pipeline reads from and writes to.
type CRM interface {
	// GetCompanyByDomain returns nil, nil when no record matches.
	GetCompanyByDomain(ctx context.Context, domain string) (*model.CompanyRecord, error)
	UpdateCompany(ctx context.Context, id string, props map[string]any) error
	SuggestUpdate(ctx context.Context, id string, props map[string]any) error
}

// New connects to Salesforce when a client id is configured and otherwise
// returns the log-only CRM.
func New(cfg config.SalesforceConfig) (CRM, error) {
	if cfg.ClientID == "" {
		return NewLogCRM(), nil
	}
	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, eris.Wrapf(err, "crm: read salesforce key %s", cfg.KeyPath)
	}
	client, err := salesforce.Connect(salesforce.Creds{
		LoginURL:    cfg.LoginURL,
		Username:    cfg.Username,
		ConsumerKey: cfg.ClientID,
		PrivateKey:  string(key),
	}, salesforce.WithRateLimit(cfg.RateLimit))
	if err != nil {
		return nil, eris.Wrap(err, "crm: connect salesforce")
	}
	return NewSalesforce(client, cfg.TaskOwnerID), nil
}

// Dossier field API names on the Account object.
const (
	FieldFitTier        = "Fit_Tier__c"
	FieldDiagnosis      = "GTM_Diagnosis__c"
	FieldFitConfidence  = "Fit_Confidence__c"
	FieldDossierConfig  = "Dossier_Config__c"
	FieldDossierUpdated = "Dossier_Generated_At__c"
)

// DossierProperties maps a finished dossier to CRM account fields.
func DossierProperties(d *model.AccountDossier) map[string]any {
	if d == nil {
		return nil
	}
	props := map[string]any{
		FieldFitTier:        string(d.Diagnosis.FitTier),
		FieldDiagnosis:      d.Diagnosis.DiagnosisLabel,
		FieldFitConfidence:  d.Diagnosis.Confidence,
		FieldDossierConfig:  d.Meta.ConfigID,
		FieldDossierUpdated: d.Meta.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if d.Firmographics.Industry != "" {
		props["Industry"] = d.Firmographics.Industry
	}
	if d.Positioning.OneLiner != "" {
		props["Description"] = d.Positioning.OneLiner
	}
	return props
}

// formatProps renders properties one per line in key order.
func formatProps(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, props[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogCRM is used when no CRM credential is configured. Lookups find
// nothing and writes are logged.
type LogCRM struct{}

// NewLogCRM creates the log-only CRM.
func NewLogCRM() *LogCRM { return &LogCRM{} }

// GetCompanyByDomain implements CRM.
func (l *LogCRM) GetCompanyByDomain(_ context.Context, domain string) (*model.CompanyRecord, error) {
	zap.L().Debug("crm: no credential, skipping lookup", zap.String("domain", domain))
	return nil, nil
}

// UpdateCompany implements CRM.
func (l *LogCRM) UpdateCompany(_ context.Context, id string, props map[string]any) error {
	zap.L().Info("crm: mock update", zap.String("id", id), zap.Any("props", props))
	return nil
}

// SuggestUpdate implements CRM.
func (l *LogCRM) SuggestUpdate(_ context.Context, id string, props map[string]any) error {
	zap.L().Info("crm: mock suggestion", zap.String("id", id), zap.Any("props", props))
	return nil
}
