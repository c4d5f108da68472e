package domain

import "time"

// Channel is a delivery medium for outbound notifications.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelLetter   Channel = "letter"
)

// ValidChannel reports whether the value is a supported channel.
func ValidChannel(c Channel) bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelWhatsApp, ChannelLetter:
		return true
	}
	return false
}

// EventStatus enumerates communication event states. Terminal states are
// sent, read and failed.
type EventStatus string

const (
	EventStatusQueued  EventStatus = "queued"
	EventStatusSending EventStatus = "sending"
	EventStatusSent    EventStatus = "sent"
	EventStatusRead    EventStatus = "read"
	EventStatusFailed  EventStatus = "failed"
)

// rank orders statuses so that updates can only move forward. Deliveries for
// different channels of the same notice may complete out of order; the stored
// status must never regress.
func (s EventStatus) rank() int {
	switch s {
	case EventStatusQueued:
		return 1
	case EventStatusSending:
		return 2
	case EventStatusSent:
		return 3
	case EventStatusRead:
		return 4
	case EventStatusFailed:
		return 5
	}
	return 0
}

// CanTransitionTo reports whether moving from s to next is a forward move.
// A retry re-queues a sending event, which is the one allowed backward step.
func (s EventStatus) CanTransitionTo(next EventStatus) bool {
	if s == EventStatusSent || s == EventStatusRead || s == EventStatusFailed {
		return s == EventStatusSent && next == EventStatusRead
	}
	if s == EventStatusSending && next == EventStatusQueued {
		return true
	}
	return next.rank() > s.rank()
}

// CommunicationEvent records one send request for a (notice, channel) pair.
// Mutated only by the delivery pipeline.
type CommunicationEvent struct {
	ID               string
	NoticeID         string
	Channel          Channel
	RecipientID      string
	RecipientAddress string
	TemplateID       string
	Content          string
	Status           EventStatus
	RetryCount       int
	NextRetryAt      *time.Time
	LastError        *string
	SentAt           *time.Time
	ReadAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BatchStatus enumerates message batch states.
type BatchStatus string

const (
	BatchStatusScheduled      BatchStatus = "scheduled"
	BatchStatusExecuting      BatchStatus = "executing"
	BatchStatusCompleted      BatchStatus = "completed"
	BatchStatusPartialFailure BatchStatus = "partial_failure"
)

// MessageBatch fans one notice out to a recipient list.
type MessageBatch struct {
	ID           string
	NoticeID     string
	RecipientIDs []string
	Channel      Channel
	Language     string
	Status       BatchStatus
	SuccessRate  *float64
	ScheduledFor time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
