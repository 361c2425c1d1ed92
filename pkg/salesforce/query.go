package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account represents a Salesforce Account record.
type Account struct {
	ID                string `json:"Id" salesforce:"Id"`
	Name              string `json:"Name" salesforce:"Name"`
	Website           string `json:"Website" salesforce:"Website"`
	Industry          string `json:"Industry" salesforce:"Industry"`
	Description       string `json:"Description" salesforce:"Description"`
	BillingCity       string `json:"BillingCity" salesforce:"BillingCity"`
	BillingState      string `json:"BillingState" salesforce:"BillingState"`
	BillingCountry    string `json:"BillingCountry" salesforce:"BillingCountry"`
	NumberOfEmployees int    `json:"NumberOfEmployees" salesforce:"NumberOfEmployees"`
}

// accountFields are the SOQL fields selected for Account queries.
var accountFields = []string{
	"Id", "Name", "Website", "Industry", "Description",
	"BillingCity", "BillingState", "BillingCountry", "NumberOfEmployees",
}

// FindAccountByWebsite queries Salesforce for an Account whose Website
// contains the given domain. Websites are stored in many shapes
// ("https://www.acme.com/", "acme.com"), so the match is a substring match.
// Returns nil if no account is found.
func FindAccountByWebsite(ctx context.Context, c Client, domain string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Website LIKE '%%%s%%' ORDER BY LastModifiedDate DESC LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(domain),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find account by website %s", domain))
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// FindAccountByID queries Salesforce for an Account by its ID.
// Returns nil if no account is found.
func FindAccountByID(ctx context.Context, c Client, id string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Id = '%s' LIMIT 1",
		strings.Join(accountFields, ", "),
		escapeSoql(id),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find account by id %s", id))
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// escapeSoql escapes single quotes and LIKE wildcards in SOQL string
// literals to prevent injection.
func escapeSoql(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "'", `\'`, "%", `\%`, "_", `\_`)
	return r.Replace(s)
}
