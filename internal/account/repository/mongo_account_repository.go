// Package repository provides document-store persistence for accounts.
package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	accountDomain "github.com/metagrid/directory/internal/account/domain"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/store"
)

const accountCollection = "accounts"

// noCaseCollation backs the unique username and email indexes so that
// uniqueness is enforced case-insensitively at the store level too.
var noCaseCollation = options.Collation{Locale: "en", Strength: 2}

// MongoAccountRepository implements account persistence on the document store.
type MongoAccountRepository struct {
	store *store.Store
}

// NewMongoAccountRepository creates the account repository and ensures its
// lookup indexes exist.
func NewMongoAccountRepository(ctx context.Context, s *store.Store) (*MongoAccountRepository, error) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(&noCaseCollation)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(&noCaseCollation)},
	}
	if err := s.EnsureIndexes(ctx, accountCollection, indexes); err != nil {
		return nil, err
	}
	return &MongoAccountRepository{store: s}, nil
}

// Create inserts a new account.
func (r *MongoAccountRepository) Create(ctx context.Context, account *accountDomain.Account) error {
	return r.store.CreateObject(ctx, accountCollection, account)
}

// GetByID retrieves an account by its id.
func (r *MongoAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error) {
	return r.getOne(ctx, store.Eq("id", id))
}

// GetByUsername retrieves an account by username, case-insensitively.
func (r *MongoAccountRepository) GetByUsername(ctx context.Context, username string) (*accountDomain.Account, error) {
	return r.getOne(ctx, store.Eq("username", username), store.NoCase())
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *MongoAccountRepository) GetByEmail(ctx context.Context, email string) (*accountDomain.Account, error) {
	return r.getOne(ctx, store.Eq("email", email), store.NoCase())
}

// List returns accounts ordered by username.
func (r *MongoAccountRepository) List(ctx context.Context, pager store.Pagination) ([]*accountDomain.Account, error) {
	var accounts []*accountDomain.Account
	err := r.store.GetObjects(ctx, accountCollection, store.All(), &accounts,
		store.WithPagination(pager), store.SortBy("username", true))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list accounts")
	}
	return accounts, nil
}

// Count returns the total number of accounts.
func (r *MongoAccountRepository) Count(ctx context.Context) (int64, error) {
	return r.store.CountObjects(ctx, accountCollection, store.All())
}

// UpdateFields persists the given physical field values on an account.
func (r *MongoAccountRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.store.UpdateObjectFields(ctx, accountCollection, store.Eq("id", id), fields)
}

// Delete removes an account by id. Reports whether one was deleted.
func (r *MongoAccountRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.store.DeleteOne(ctx, accountCollection, store.Eq("id", id))
}

// RemoveFromRelationships strips username from the friends and connections
// arrays of every other account. Used when an account is deleted or renamed
// away.
func (r *MongoAccountRepository) RemoveFromRelationships(ctx context.Context, username string) error {
	return r.store.PullFromArrays(ctx, accountCollection, store.All(), username, "friends", "connections")
}

func (r *MongoAccountRepository) getOne(ctx context.Context, filter store.Filter, opts ...store.QueryOption) (*accountDomain.Account, error) {
	var account accountDomain.Account
	if err := r.store.GetObject(ctx, accountCollection, filter, &account, opts...); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, accountDomain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get account")
	}
	return &account, nil
}
