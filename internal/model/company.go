package model

// CompanyRecord is the subset of a CRM account the pipeline reads.
type CompanyRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	City        string `json:"city,omitempty"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
}
