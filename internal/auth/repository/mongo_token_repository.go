// Package repository provides document-store persistence for tokens.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/store"
)

const tokenCollection = "tokens"

// MongoTokenRepository implements token persistence on the document store.
type MongoTokenRepository struct {
	store *store.Store
}

// NewMongoTokenRepository creates the token repository and ensures its
// lookup indexes exist.
func NewMongoTokenRepository(ctx context.Context, s *store.Store) (*MongoTokenRepository, error) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "refresh_token", Value: 1}}},
		{Keys: bson.D{{Key: "account_id", Value: 1}}},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}},
	}
	if err := s.EnsureIndexes(ctx, tokenCollection, indexes); err != nil {
		return nil, err
	}
	return &MongoTokenRepository{store: s}, nil
}

// Create inserts a new token.
func (r *MongoTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	return r.store.CreateObject(ctx, tokenCollection, token)
}

// GetByID retrieves a token by its id.
func (r *MongoTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error) {
	return r.getOne(ctx, store.Eq("id", id))
}

// GetByToken retrieves a token by its bearer string.
func (r *MongoTokenRepository) GetByToken(ctx context.Context, token string) (*authDomain.Token, error) {
	return r.getOne(ctx, store.Eq("token", token))
}

// GetByRefreshToken retrieves a token by its refresh string.
func (r *MongoTokenRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (*authDomain.Token, error) {
	return r.getOne(ctx, store.Eq("refresh_token", refreshToken))
}

// ListForAccount returns the tokens issued to an account, newest first.
func (r *MongoTokenRepository) ListForAccount(ctx context.Context, accountID uuid.UUID, pager store.Pagination) ([]*authDomain.Token, error) {
	var tokens []*authDomain.Token
	err := r.store.GetObjects(ctx, tokenCollection, store.Eq("account_id", accountID), &tokens,
		store.WithPagination(pager), store.SortBy("created_at", false))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tokens")
	}
	return tokens, nil
}

// Delete removes a token by id. Reports whether a token was deleted.
func (r *MongoTokenRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.store.DeleteOne(ctx, tokenCollection, store.Eq("id", id))
}

// DeleteExpired removes every token whose expiration is before now and
// returns the count.
func (r *MongoTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.store.DeleteMany(ctx, tokenCollection, store.Lt("expires_at", now))
}

// DeleteForAccount removes all tokens issued to an account.
func (r *MongoTokenRepository) DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return r.store.DeleteMany(ctx, tokenCollection, store.Eq("account_id", accountID))
}

func (r *MongoTokenRepository) getOne(ctx context.Context, filter store.Filter) (*authDomain.Token, error) {
	var token authDomain.Token
	if err := r.store.GetObject(ctx, tokenCollection, filter, &token); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token")
	}
	return &token, nil
}
