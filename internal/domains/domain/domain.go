// Package domain defines the virtual-world domain entity and its field
// access rules.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Maturity ratings a domain can advertise.
const (
	MaturityUnrated  = "unrated"
	MaturityEveryone = "everyone"
	MaturityTeen     = "teen"
	MaturityMature   = "mature"
	MaturityAdult    = "adult"
)

// KnownMaturity reports whether the rating is part of the enumeration.
func KnownMaturity(m string) bool {
	switch m {
	case MaturityUnrated, MaturityEveryone, MaturityTeen, MaturityMature, MaturityAdult:
		return true
	}
	return false
}

// Domain is a virtual-world server registration. A domain is created
// unsponsored; the first authenticated access binds the caller's account as
// its sponsor.
type Domain struct {
	ID   uuid.UUID `bson:"id"`
	Name string    `bson:"name"`

	// APIKey authenticates the domain server itself on heartbeat updates.
	APIKey string `bson:"api_key"`
	// LastSenderKey records the address:port the latest authenticated
	// update came from.
	LastSenderKey string `bson:"last_sender_key"`
	// SponsorAccountID is the owning account; uuid.Nil until bound.
	SponsorAccountID uuid.UUID `bson:"sponsor_account_id"`

	Version        string `bson:"version"`
	Protocol       string `bson:"protocol"`
	NetworkAddress string `bson:"network_address"`
	NetworkPort    string `bson:"network_port"`

	Capacity    int64    `bson:"capacity"`
	Description string   `bson:"description"`
	Maturity    string   `bson:"maturity"`
	Restriction string   `bson:"restriction"`
	Tags        []string `bson:"tags"`
	Hosts       []string `bson:"hosts"`

	// User counts reported by heartbeats. TotalUsers is derived, never
	// reported directly.
	NumUsers   int64 `bson:"num_users"`
	AnonUsers  int64 `bson:"anon_users"`
	TotalUsers int64 `bson:"total_users"`

	LastHeartbeatAt time.Time `bson:"last_heartbeat_at"`
	CreatedAt       time.Time `bson:"created_at"`
}

// OwnedBy reports whether the account sponsors the domain.
func (d *Domain) OwnedBy(accountID uuid.UUID) bool {
	return d.SponsorAccountID != uuid.Nil && d.SponsorAccountID == accountID
}

// MatchesAPIKey reports whether the key authenticates this domain server.
func (d *Domain) MatchesAPIKey(key string) bool {
	return d.APIKey != "" && d.APIKey == key
}

// EntityID returns the domain id for sponsor binding.
func (d *Domain) EntityID() uuid.UUID {
	return d.ID
}

// Sponsored reports whether an owner has been bound.
func (d *Domain) Sponsored() bool {
	return d.SponsorAccountID != uuid.Nil
}

// SetSponsor binds the owning account in memory.
func (d *Domain) SetSponsor(accountID uuid.UUID) {
	d.SponsorAccountID = accountID
}
