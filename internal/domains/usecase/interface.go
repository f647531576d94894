// Package usecase implements domain business logic: registration, heartbeat
// updates, sponsor binding, place management and cascade deletion.
package usecase

import (
	"context"

	"github.com/google/uuid"

	domainsDomain "github.com/metagrid/directory/internal/domains/domain"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/store"
)

// DomainRepository defines persistence operations for domains and places.
type DomainRepository interface {
	Create(ctx context.Context, domain *domainsDomain.Domain) error
	GetByID(ctx context.Context, id uuid.UUID) (*domainsDomain.Domain, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domainsDomain.Domain, error)
	List(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Domain, error)
	ListForSponsor(ctx context.Context, accountID uuid.UUID) ([]*domainsDomain.Domain, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	CreatePlace(ctx context.Context, place *domainsDomain.Place) error
	GetPlaceByID(ctx context.Context, id uuid.UUID) (*domainsDomain.Place, error)
	GetPlaceByName(ctx context.Context, name string) (*domainsDomain.Place, error)
	ListPlaces(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Place, error)
	ListPlacesForDomain(ctx context.Context, domainID uuid.UUID) ([]*domainsDomain.Place, error)
	DeletePlace(ctx context.Context, id uuid.UUID) (bool, error)
	DeletePlacesForDomain(ctx context.Context, domainID uuid.UUID) (int64, error)
}

// DomainUseCase manages domains and their places. It also implements
// permission.SponsorBinder for lazy sponsor binding.
type DomainUseCase interface {
	// CreateDomain registers a new unsponsored domain with a fresh API key.
	CreateDomain(ctx context.Context, name string) (*domainsDomain.Domain, error)

	GetByID(ctx context.Context, id uuid.UUID) (*domainsDomain.Domain, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*domainsDomain.Domain, error)
	List(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Domain, error)
	ListForSponsor(ctx context.Context, accountID uuid.UUID) ([]*domainsDomain.Domain, error)

	// BindSponsor implements permission.SponsorBinder.
	BindSponsor(ctx context.Context, domainID, accountID uuid.UUID) error

	// RegenerateAPIKey replaces the domain's API key and returns the new one.
	RegenerateAPIKey(ctx context.Context, id uuid.UUID) (string, error)

	// DeleteDomain removes the domain and its places.
	DeleteDomain(ctx context.Context, id uuid.UUID) error
	// DeleteForSponsor removes every domain sponsored by the account,
	// places included, and returns the domain count.
	DeleteForSponsor(ctx context.Context, accountID uuid.UUID) (int64, error)

	// IsOnline reports whether the domain heartbeated within the window.
	IsOnline(domain *domainsDomain.Domain) bool

	// DomainInfo returns the caller-visible field values for a domain.
	DomainInfo(ctx context.Context, ident permission.Identity, domain *domainsDomain.Domain) map[string]any
	// UpdateDomainFields applies field writes through the access table. Any
	// successful write also refreshes the heartbeat timestamp and records
	// the sender key. It returns the public names of the fields updated.
	UpdateDomainFields(ctx context.Context, ident permission.Identity, domain *domainsDomain.Domain, updates map[string]any) ([]string, error)

	CreatePlace(ctx context.Context, domainID uuid.UUID, name, description, path string) (*domainsDomain.Place, error)
	// GetPlaceByRef resolves a place by id when ref parses as a UUID,
	// otherwise by name.
	GetPlaceByRef(ctx context.Context, ref string) (*domainsDomain.Place, error)
	ListPlaces(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Place, error)
	ListPlacesForDomain(ctx context.Context, domainID uuid.UUID) ([]*domainsDomain.Place, error)
	DeletePlace(ctx context.Context, id uuid.UUID) error

	// SetEvaluator attaches the field evaluator during wiring.
	SetEvaluator(ev *permission.Evaluator[*domainsDomain.Domain])
}
