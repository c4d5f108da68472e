package events

import (
	"time"

	"github.com/spec-kit/notice-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDeliverySent     EventType = "delivery_sent"
	EventDeliveryFailed   EventType = "delivery_failed"
	EventDeliveryRead     EventType = "delivery_read"
	EventAlertRaised      EventType = "alert_raised"
	EventBillingCompleted EventType = "billing_completed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	NoticeID  string      `json:"notice_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DeliverySentPayload payload.
type DeliverySentPayload struct {
	EventID string         `json:"event_id"`
	Channel domain.Channel `json:"channel"`
	Address string         `json:"address"`
}

// DeliveryFailedPayload payload.
type DeliveryFailedPayload struct {
	EventID    string         `json:"event_id"`
	Channel    domain.Channel `json:"channel"`
	RetryCount int            `json:"retry_count"`
	LastError  string         `json:"last_error"`
	Terminal   bool           `json:"terminal"`
}

// DeliveryReadPayload payload.
type DeliveryReadPayload struct {
	EventID string    `json:"event_id"`
	ReadAt  time.Time `json:"read_at"`
}

// AlertRaisedPayload payload.
type AlertRaisedPayload struct {
	AlertID  string               `json:"alert_id"`
	Type     domain.AlertType     `json:"type"`
	Severity domain.AlertSeverity `json:"severity"`
	EntityID string               `json:"entity_id"`
}

// BillingCompletedPayload payload.
type BillingCompletedPayload struct {
	Period    string `json:"period"`
	Generated int    `json:"generated"`
	Failed    int    `json:"failed"`
}
