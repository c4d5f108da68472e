package domain

import "time"

// Contract is the rental agreement the engine reads for deadline math,
// billing eligibility and anomaly checks. Owned by the CRUD layer.
type Contract struct {
	ID                string
	TenantID          string
	PropertyID        string
	PropertyManagerID string
	StartDate         time.Time
	EndDate           *time.Time
	MonthlyRent       float64
	Currency          string
	PreferredLanguage string
	PreferredChannels []Channel
	Legal             LegalTerms
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsActive reports whether the contract has no end date yet.
func (c Contract) IsActive() bool {
	return c.EndDate == nil
}
