package crm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dossier-cli/internal/model"
	"github.com/sells-group/dossier-cli/pkg/salesforce"
)

// Salesforce implements CRM against Salesforce Accounts.
type Salesforce struct {
	client      salesforce.Client
	taskOwnerID string
}

// NewSalesforce wraps a Salesforce client. taskOwnerID assigns review tasks;
// empty leaves them with the integration user.
func NewSalesforce(client salesforce.Client, taskOwnerID string) *Salesforce {
	return &Salesforce{client: client, taskOwnerID: taskOwnerID}
}

// GetCompanyByDomain implements CRM.
func (s *Salesforce) GetCompanyByDomain(ctx context.Context, domain string) (*model.CompanyRecord, error) {
	acct, err := salesforce.FindAccountByWebsite(ctx, s.client, domain)
	if err != nil {
		return nil, eris.Wrap(err, "crm: lookup by domain")
	}
	if acct == nil {
		return nil, nil
	}
	return toCompanyRecord(acct, domain), nil
}

// GetCompanyByID returns the account with the given id, or nil.
func (s *Salesforce) GetCompanyByID(ctx context.Context, id string) (*model.CompanyRecord, error) {
	acct, err := salesforce.FindAccountByID(ctx, s.client, id)
	if err != nil {
		return nil, eris.Wrap(err, "crm: lookup by id")
	}
	if acct == nil {
		return nil, nil
	}
	domain, _ := model.NormalizeDomain(acct.Website)
	return toCompanyRecord(acct, domain), nil
}

// UpdateCompany implements CRM.
func (s *Salesforce) UpdateCompany(ctx context.Context, id string, props map[string]any) error {
	if err := salesforce.UpdateAccount(ctx, s.client, id, props); err != nil {
		return eris.Wrap(err, "crm: update company")
	}
	return nil
}

// SuggestUpdate implements CRM by opening a review task on the account.
func (s *Salesforce) SuggestUpdate(ctx context.Context, id string, props map[string]any) error {
	subject := "Review dossier update"
	if tier, ok := props[FieldFitTier].(string); ok && tier != "" {
		subject += " (fit tier " + tier + ")"
	}
	_, err := salesforce.CreateTask(ctx, s.client, salesforce.Task{
		WhatID:      id,
		OwnerID:     s.taskOwnerID,
		Subject:     subject,
		Description: "Proposed field values:\n" + formatProps(props),
	})
	if err != nil {
		return eris.Wrap(err, "crm: suggest update")
	}
	return nil
}

func toCompanyRecord(a *salesforce.Account, domain string) *model.CompanyRecord {
	var loc []string
	for _, p := range []string{a.BillingCity, a.BillingState} {
		if p != "" {
			loc = append(loc, p)
		}
	}
	return &model.CompanyRecord{
		ID:          a.ID,
		Name:        a.Name,
		Domain:      domain,
		City:        strings.Join(loc, ", "),
		Description: a.Description,
		Industry:    a.Industry,
	}
}
