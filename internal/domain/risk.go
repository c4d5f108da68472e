package domain

import "time"

// SignalSeverity grades a risk signal.
type SignalSeverity string

const (
	SignalLow    SignalSeverity = "low"
	SignalMedium SignalSeverity = "medium"
	SignalHigh   SignalSeverity = "high"
)

// RiskSignal is an immutable observation feeding the departure risk score.
type RiskSignal struct {
	Signal    string         `json:"signal"`
	Severity  SignalSeverity `json:"severity"`
	Evidence  map[string]any `json:"evidence"`
	Timestamp time.Time      `json:"timestamp"`
}

// RetentionRecommendation suggests an action to keep a tenant.
type RetentionRecommendation struct {
	Action         string `json:"action"`
	Priority       string `json:"priority"`
	ExpectedImpact string `json:"expected_impact"`
}

// DepartureWindow is the predicted interval in which a high-risk tenant is
// likely to leave.
type DepartureWindow struct {
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Confidence float64   `json:"confidence"`
}

// DepartureRiskAssessment is one scoring snapshot for a tenant. History is
// append-only; the score is derived from the signal set present at evaluation
// time, not cumulative across runs.
type DepartureRiskAssessment struct {
	TenantID                 string
	ContractID               string
	RiskScore                int
	Signals                  []RiskSignal
	RetentionRecommendations []RetentionRecommendation
	PredictedDepartureWindow *DepartureWindow
	CalculatedAt             time.Time
}
