package domain

import "time"

// InvoiceStatus enumerates billing states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice is one rent invoice for a (contract, period) pair. Generation is an
// upsert keyed on that pair so billing runs are safe to re-execute.
type Invoice struct {
	ID            string
	ContractID    string
	Period        string // YYYY-MM
	Amount        float64
	Currency      string
	DueDate       time.Time
	Status        InvoiceStatus
	PenaltyAmount float64
	IssuedAt      time.Time
	PaidAt        *time.Time
	UpdatedAt     time.Time
}
