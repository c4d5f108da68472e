package domain

import "time"

// NoticeType enumerates legal notice categories.
type NoticeType string

const (
	NoticeTypeTermination  NoticeType = "termination"
	NoticeTypeRentIncrease NoticeType = "rent_increase"
	NoticeTypeTransfer     NoticeType = "transfer"
	NoticeTypeWorks        NoticeType = "works"
)

// NoticeStatus enumerates lifecycle states for notices. The lifecycle itself
// is owned by the CRUD layer; the engine only reads and reacts to it.
type NoticeStatus string

const (
	NoticeStatusDraft     NoticeStatus = "draft"
	NoticeStatusSent      NoticeStatus = "sent"
	NoticeStatusReceived  NoticeStatus = "received"
	NoticeStatusValidated NoticeStatus = "validated"
	NoticeStatusContested NoticeStatus = "contested"
	NoticeStatusExpired   NoticeStatus = "expired"
	NoticeStatusAnnulled  NoticeStatus = "annulled"
	NoticeStatusClosed    NoticeStatus = "closed"
)

// IsTerminal reports whether no further lifecycle transitions are expected.
func (s NoticeStatus) IsTerminal() bool {
	return s == NoticeStatusClosed || s == NoticeStatusAnnulled || s == NoticeStatusExpired
}

// LitigationStatus tracks contested notices.
type LitigationStatus string

const (
	LitigationOpen      LitigationStatus = "open"
	LitigationMediation LitigationStatus = "mediation"
	LitigationResolved  LitigationStatus = "resolved"
	LitigationEscalated LitigationStatus = "escalated"
)

// Notice is a legal/contractual termination or change document tied to a
// rental contract.
type Notice struct {
	ID                 string
	ContractID         string
	Type               NoticeType
	Motif              string
	EmissionDate       time.Time
	EffectiveDate      time.Time
	Status             NoticeStatus
	Channels           []Channel
	ContestedAt        *time.Time
	ContestationReason *string
	LitigationStatus   *LitigationStatus
	AcknowledgedAt     *time.Time
	DocumentCount      int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AuditEntry is an append-only record of an action taken on a notice.
type AuditEntry struct {
	ID        string
	NoticeID  string
	Action    string
	ActorID   string
	Details   map[string]any
	CreatedAt time.Time
}
