package domain

import "time"

// AlertType enumerates operational alert categories.
type AlertType string

const (
	AlertTypeDeadline      AlertType = "deadline"
	AlertTypeLitigation    AlertType = "litigation"
	AlertTypeAnomaly       AlertType = "anomaly"
	AlertTypeDepartureRisk AlertType = "departure_risk"
	AlertTypePayment       AlertType = "payment"
)

// AlertSeverity orders alerts for triage. P1 is the most urgent.
type AlertSeverity string

const (
	SeverityP1 AlertSeverity = "P1"
	SeverityP2 AlertSeverity = "P2"
	SeverityP3 AlertSeverity = "P3"
)

// AlertStatus is open until a human or rule closes the alert.
type AlertStatus string

const (
	AlertStatusOpen     AlertStatus = "open"
	AlertStatusResolved AlertStatus = "resolved"
)

// AlertReasoning explains which rule fired and why.
type AlertReasoning struct {
	Rule       string         `json:"rule"`
	Factors    map[string]any `json:"factors"`
	Confidence float64        `json:"confidence"`
}

// Alert is a prioritized operational alert raised by the scanner or the risk
// engine, closed externally or programmatically.
type Alert struct {
	ID             string
	Type           AlertType
	Severity       AlertSeverity
	EntityID       string
	Title          string
	Description    string
	ActionRequired string
	AssignedTo     *string
	DueDate        *time.Time
	Reasoning      AlertReasoning
	Status         AlertStatus
	CreatedAt      time.Time
	ResolvedAt     *time.Time
}
