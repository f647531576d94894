// Package domain defines the account entity and its field access rules.
package domain

import (
	"time"

	"github.com/google/uuid"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
)

// Images holds the three profile image slots.
type Images struct {
	Hero      string `bson:"hero"`
	Thumbnail string `bson:"thumbnail"`
	Tiny      string `bson:"tiny"`
}

// Account is a user identity document. Fields without functions only;
// behavior lives in the use case and the field table.
type Account struct {
	ID              uuid.UUID `bson:"id"`
	Username        string    `bson:"username"`
	Email           string    `bson:"email"`
	AccountSettings string    `bson:"account_settings"` // JSON blob of client settings
	Images          Images    `bson:"images"`
	Locker          string    `bson:"locker"` // JSON blob stored for the user

	// Symmetric relationship sets; entries are usernames and are
	// maintained on both sides.
	Connections []string `bson:"connections"`
	Friends     []string `bson:"friends"`

	// Credentials. Hash and salt persist separately and are never exposed.
	PasswordHash     string `bson:"password_hash"`
	PasswordSalt     string `bson:"password_salt"`
	SessionPublicKey string `bson:"session_public_key"` // PEM for the current session

	Roles           []string  `bson:"roles"`
	CreatorIP       string    `bson:"creator_ip"`
	CreatedAt       time.Time `bson:"created_at"`
	LastHeartbeatAt time.Time `bson:"last_heartbeat_at"`
}

// OwnedBy reports whether the account is owned by the given account id,
// which for accounts means the account itself.
func (a *Account) OwnedBy(accountID uuid.UUID) bool {
	return a.ID != uuid.Nil && a.ID == accountID
}

// IsAdmin reports whether the account carries the admin role.
func (a *Account) IsAdmin() bool {
	for _, role := range a.Roles {
		if role == authDomain.RoleAdmin {
			return true
		}
	}
	return false
}

// HasFriend reports whether username is in the friends set.
func (a *Account) HasFriend(username string) bool {
	return contains(a.Friends, username)
}

// HasConnection reports whether username is in the connections set.
func (a *Account) HasConnection(username string) bool {
	return contains(a.Connections, username)
}

func contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}
