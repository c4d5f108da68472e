package dto

import "time"

// DeliverRequest asks the pipeline to send one notice to one recipient.
type DeliverRequest struct {
	NoticeID    string `json:"notice_id"`
	RecipientID string `json:"recipient_id"`
	Channel     string `json:"channel"`
	Language    string `json:"language"`
}

// ValidateNoticeRequest asks for the deadline check of a prospective notice.
type ValidateNoticeRequest struct {
	ContractID    string     `json:"contract_id"`
	NoticeType    string     `json:"notice_type"`
	EmissionDate  time.Time  `json:"emission_date"`
	EffectiveDate *time.Time `json:"effective_date"`
}

// ValidateNoticeResponse carries the computed legal effective date.
type ValidateNoticeResponse struct {
	ContractID            string    `json:"contract_id"`
	NoticeType            string    `json:"notice_type"`
	EmissionDate          time.Time `json:"emission_date"`
	MinimumEffectiveDate  time.Time `json:"minimum_effective_date"`
	NoticeDurationDays    int       `json:"notice_duration_days"`
	CountBusinessDaysOnly bool      `json:"count_business_days_only"`
	MonthEndProration     bool      `json:"month_end_proration"`
}

// ReadReceiptRequest is the provider webhook payload for a read event.
type ReadReceiptRequest struct {
	ReadAt *time.Time `json:"read_at"`
}

// BillingJobRequest triggers an ad hoc billing run for one period.
type BillingJobRequest struct {
	Month string `json:"month"`
}

// RiskJobRequest triggers a scoring run, for one tenant or the whole batch.
type RiskJobRequest struct {
	TenantID string `json:"tenant_id"`
}

// JobAccepted acknowledges an enqueued job.
type JobAccepted struct {
	JobID string `json:"job_id"`
}

// AlertSummary is the alert read-model row.
type AlertSummary struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	EntityID       string     `json:"entity_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ActionRequired string     `json:"action_required"`
	AssignedTo     *string    `json:"assigned_to,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// DeliverySummary is the communication-event view returned by the pipeline.
type DeliverySummary struct {
	ID          string     `json:"id"`
	NoticeID    string     `json:"notice_id"`
	Channel     string     `json:"channel"`
	RecipientID string     `json:"recipient_id"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	LastError   *string    `json:"last_error,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
