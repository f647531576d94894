package domain

import (
	"time"

	"github.com/google/uuid"
)

// Scope limits the kind of operations a token authorizes.
type Scope string

const (
	// ScopeOwner marks a personal token for a user account.
	ScopeOwner Scope = "owner"
	// ScopeDomain marks a token held by a domain server.
	ScopeDomain Scope = "domain"
	// ScopePlace marks a token bound to a place API key.
	ScopePlace Scope = "place"
	// ScopeRead and ScopeWrite restrict federation access.
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
)

// KnownScope reports whether the tag is part of the recognized enumeration.
// Unrecognized scopes are dropped silently at issue time, not rejected.
func KnownScope(s Scope) bool {
	switch s {
	case ScopeOwner, ScopeDomain, ScopePlace, ScopeRead, ScopeWrite:
		return true
	}
	return false
}

// Account role tags. Roles live on accounts but are authorization concepts,
// referenced by capability resolution.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Token is a bearer credential with a scope set and an expiration.
// A token with zero recognized scopes is still valid but privilege-less.
type Token struct {
	ID           uuid.UUID `bson:"id"`
	Token        string    `bson:"token"`
	RefreshToken string    `bson:"refresh_token"`
	AccountID    uuid.UUID `bson:"account_id"`
	Scope        []Scope   `bson:"scope"`
	CreatedAt    time.Time `bson:"created_at"`
	ExpiresAt    time.Time `bson:"expires_at"`
}

// HasScope reports whether the token carries the scope tag.
func (t *Token) HasScope(s Scope) bool {
	for _, have := range t.Scope {
		if have == s {
			return true
		}
	}
	return false
}
