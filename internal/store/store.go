// Package store provides document-store access on top of MongoDB.
// Entities are persisted as plain documents; callers supply opaque filters
// and receive decoded results, keeping the query language out of use cases.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "github.com/metagrid/directory/internal/errors"
)

// Config holds document store connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store wraps a MongoDB database and exposes the small set of document
// operations the repositories need.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes the MongoDB connection and verifies it with a ping.
func Connect(cfg Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to document store")
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, apperrors.Wrap(err, "failed to ping document store")
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Close disconnects from the document store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// CreateObject inserts a new document into the named collection.
func (s *Store) CreateObject(ctx context.Context, collection string, entity any) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, entity); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrConflict
		}
		return apperrors.Wrap(err, "failed to create object")
	}
	return nil
}

// GetObject finds a single document matching the filter and decodes it into out.
// Returns ErrNotFound when no document matches.
func (s *Store) GetObject(ctx context.Context, collection string, filter Filter, out any, opts ...QueryOption) error {
	q := applyOptions(opts)

	findOpts := options.FindOne()
	if q.collation != nil {
		findOpts.SetCollation(q.collation)
	}

	err := s.db.Collection(collection).FindOne(ctx, filter.criteria(), findOpts).Decode(out)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return apperrors.ErrNotFound
		}
		return apperrors.Wrap(err, "failed to get object")
	}
	return nil
}

// GetObjects finds all documents matching the filter and decodes them into out,
// which must be a pointer to a slice. Pagination and sorting come in through
// query options.
func (s *Store) GetObjects(ctx context.Context, collection string, filter Filter, out any, opts ...QueryOption) error {
	q := applyOptions(opts)

	findOpts := options.Find()
	if q.collation != nil {
		findOpts.SetCollation(q.collation)
	}
	if q.pager != nil {
		findOpts.SetSkip(q.pager.skip()).SetLimit(q.pager.limit())
	}
	if q.sort != nil {
		findOpts.SetSort(q.sort)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter.criteria(), findOpts)
	if err != nil {
		return apperrors.Wrap(err, "failed to query objects")
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, out); err != nil {
		return apperrors.Wrap(err, "failed to decode objects")
	}
	return nil
}

// UpdateObjectFields sets the given physical fields on all documents matching
// the filter. Field names may use dotted paths for nested documents.
func (s *Store) UpdateObjectFields(ctx context.Context, collection string, filter Filter, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).UpdateMany(ctx, filter.criteria(), bson.M{"$set": fields})
	if err != nil {
		return apperrors.Wrap(err, "failed to update object fields")
	}
	return nil
}

// PullFromArrays removes a value from the named array fields on all documents
// matching the filter. Used for relationship back-reference cleanup.
func (s *Store) PullFromArrays(ctx context.Context, collection string, filter Filter, value any, fields ...string) error {
	pull := bson.M{}
	for _, f := range fields {
		pull[f] = value
	}
	_, err := s.db.Collection(collection).UpdateMany(ctx, filter.criteria(), bson.M{"$pull": pull})
	if err != nil {
		return apperrors.Wrap(err, "failed to pull from arrays")
	}
	return nil
}

// DeleteOne removes a single document matching the filter.
// Reports whether a document was actually deleted.
func (s *Store) DeleteOne(ctx context.Context, collection string, filter Filter) (bool, error) {
	res, err := s.db.Collection(collection).DeleteOne(ctx, filter.criteria())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to delete object")
	}
	return res.DeletedCount > 0, nil
}

// DeleteMany removes all documents matching the filter and returns the count.
func (s *Store) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, filter.criteria())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete objects")
	}
	return res.DeletedCount, nil
}

// CountObjects returns the number of documents matching the filter.
func (s *Store) CountObjects(ctx context.Context, collection string, filter Filter) (int64, error) {
	count, err := s.db.Collection(collection).CountDocuments(ctx, filter.criteria())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count objects")
	}
	return count, nil
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
// Failures are returned so the caller can decide whether to treat them as fatal.
func (s *Store) EnsureIndexes(ctx context.Context, collection string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return apperrors.Wrap(err, "failed to create indexes")
	}
	return nil
}
