package domain

import "time"

// Tenant is a notice recipient. Owned by the CRUD layer; the engine resolves
// channel addresses from it and writes back the denormalized risk score.
type Tenant struct {
	ID                 string
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	MailingAddress     string
	PreferredLanguage  string
	DepartureRiskScore *int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AddressFor returns the tenant's address for the given channel, or an empty
// string when none is on file.
func (t Tenant) AddressFor(channel Channel) string {
	switch channel {
	case ChannelEmail:
		return t.Email
	case ChannelSMS, ChannelWhatsApp:
		return t.Phone
	case ChannelLetter:
		return t.MailingAddress
	}
	return ""
}
