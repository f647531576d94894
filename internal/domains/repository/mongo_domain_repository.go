// Package repository provides document-store persistence for domains and
// places.
package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainsDomain "github.com/metagrid/directory/internal/domains/domain"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/store"
)

const (
	domainCollection = "domains"
	placeCollection  = "places"
)

var noCaseCollation = options.Collation{Locale: "en", Strength: 2}

// MongoDomainRepository implements domain and place persistence on the
// document store.
type MongoDomainRepository struct {
	store *store.Store
}

// NewMongoDomainRepository creates the repository and ensures its lookup
// indexes exist.
func NewMongoDomainRepository(ctx context.Context, s *store.Store) (*MongoDomainRepository, error) {
	domainIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "api_key", Value: 1}}},
		{Keys: bson.D{{Key: "sponsor_account_id", Value: 1}}},
	}
	if err := s.EnsureIndexes(ctx, domainCollection, domainIndexes); err != nil {
		return nil, err
	}

	placeIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(&noCaseCollation)},
		{Keys: bson.D{{Key: "domain_id", Value: 1}}},
	}
	if err := s.EnsureIndexes(ctx, placeCollection, placeIndexes); err != nil {
		return nil, err
	}

	return &MongoDomainRepository{store: s}, nil
}

// Create inserts a new domain.
func (r *MongoDomainRepository) Create(ctx context.Context, domain *domainsDomain.Domain) error {
	return r.store.CreateObject(ctx, domainCollection, domain)
}

// GetByID retrieves a domain by its id.
func (r *MongoDomainRepository) GetByID(ctx context.Context, id uuid.UUID) (*domainsDomain.Domain, error) {
	return r.getOne(ctx, store.Eq("id", id))
}

// GetByAPIKey retrieves a domain by its API key.
func (r *MongoDomainRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domainsDomain.Domain, error) {
	return r.getOne(ctx, store.Eq("api_key", apiKey))
}

// List returns domains ordered by name.
func (r *MongoDomainRepository) List(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Domain, error) {
	var domains []*domainsDomain.Domain
	err := r.store.GetObjects(ctx, domainCollection, store.All(), &domains,
		store.WithPagination(pager), store.SortBy("name", true))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list domains")
	}
	return domains, nil
}

// ListForSponsor returns every domain sponsored by the account.
func (r *MongoDomainRepository) ListForSponsor(ctx context.Context, accountID uuid.UUID) ([]*domainsDomain.Domain, error) {
	var domains []*domainsDomain.Domain
	err := r.store.GetObjects(ctx, domainCollection, store.Eq("sponsor_account_id", accountID), &domains)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list sponsored domains")
	}
	return domains, nil
}

// UpdateFields persists the given physical field values on a domain.
func (r *MongoDomainRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.store.UpdateObjectFields(ctx, domainCollection, store.Eq("id", id), fields)
}

// Delete removes a domain by id. Reports whether one was deleted.
func (r *MongoDomainRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.store.DeleteOne(ctx, domainCollection, store.Eq("id", id))
}

// CreatePlace inserts a new place.
func (r *MongoDomainRepository) CreatePlace(ctx context.Context, place *domainsDomain.Place) error {
	return r.store.CreateObject(ctx, placeCollection, place)
}

// GetPlaceByID retrieves a place by its id.
func (r *MongoDomainRepository) GetPlaceByID(ctx context.Context, id uuid.UUID) (*domainsDomain.Place, error) {
	var place domainsDomain.Place
	if err := r.store.GetObject(ctx, placeCollection, store.Eq("id", id), &place); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, domainsDomain.ErrPlaceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get place")
	}
	return &place, nil
}

// GetPlaceByName retrieves a place by name, case-insensitively.
func (r *MongoDomainRepository) GetPlaceByName(ctx context.Context, name string) (*domainsDomain.Place, error) {
	var place domainsDomain.Place
	if err := r.store.GetObject(ctx, placeCollection, store.Eq("name", name), &place, store.NoCase()); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, domainsDomain.ErrPlaceNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get place")
	}
	return &place, nil
}

// ListPlaces returns places ordered by name.
func (r *MongoDomainRepository) ListPlaces(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Place, error) {
	var places []*domainsDomain.Place
	err := r.store.GetObjects(ctx, placeCollection, store.All(), &places,
		store.WithPagination(pager), store.SortBy("name", true))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list places")
	}
	return places, nil
}

// ListPlacesForDomain returns the places registered under a domain.
func (r *MongoDomainRepository) ListPlacesForDomain(ctx context.Context, domainID uuid.UUID) ([]*domainsDomain.Place, error) {
	var places []*domainsDomain.Place
	err := r.store.GetObjects(ctx, placeCollection, store.Eq("domain_id", domainID), &places)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list domain places")
	}
	return places, nil
}

// DeletePlace removes a place by id. Reports whether one was deleted.
func (r *MongoDomainRepository) DeletePlace(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.store.DeleteOne(ctx, placeCollection, store.Eq("id", id))
}

// DeletePlacesForDomain removes every place under a domain.
func (r *MongoDomainRepository) DeletePlacesForDomain(ctx context.Context, domainID uuid.UUID) (int64, error) {
	return r.store.DeleteMany(ctx, placeCollection, store.Eq("domain_id", domainID))
}

func (r *MongoDomainRepository) getOne(ctx context.Context, filter store.Filter) (*domainsDomain.Domain, error) {
	var domain domainsDomain.Domain
	if err := r.store.GetObject(ctx, domainCollection, filter, &domain); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, domainsDomain.ErrDomainNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get domain")
	}
	return &domain, nil
}
