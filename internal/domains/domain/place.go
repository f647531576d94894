package domain

import (
	"time"

	"github.com/google/uuid"
)

// Place is a named entry point within a domain. Places live and die with
// their domain.
type Place struct {
	ID          uuid.UUID `bson:"id"`
	DomainID    uuid.UUID `bson:"domain_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Path        string    `bson:"path"`
	CreatedAt   time.Time `bson:"created_at"`
}

// OwnedBy is always false for a bare place; ownership checks go through the
// owning domain.
func (p *Place) OwnedBy(uuid.UUID) bool {
	return false
}
