package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Filter is an opaque query predicate. Repositories build filters with the
// helper constructors below; use cases never see the underlying query language.
type Filter struct {
	m bson.M
}

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter {
	return Filter{m: bson.M{field: value}}
}

// Lt matches documents whose field is strictly less than value.
func Lt(field string, value any) Filter {
	return Filter{m: bson.M{field: bson.M{"$lt": value}}}
}

// All matches every document in a collection.
func All() Filter {
	return Filter{m: bson.M{}}
}

// And combines filters; all conditions must hold.
func And(filters ...Filter) Filter {
	merged := bson.M{}
	for _, f := range filters {
		for k, v := range f.m {
			merged[k] = v
		}
	}
	return Filter{m: merged}
}

func (f Filter) criteria() bson.M {
	if f.m == nil {
		return bson.M{}
	}
	return f.m
}

// Pagination limits a query to one page of results.
// PageNum is 1-based; a zero value means no paging.
type Pagination struct {
	PageNum int64
	PerPage int64
}

func (p *Pagination) skip() int64 {
	if p.PageNum <= 1 {
		return 0
	}
	return (p.PageNum - 1) * p.PerPage
}

func (p *Pagination) limit() int64 {
	return p.PerPage
}

// queryOptions collects optional query modifiers.
type queryOptions struct {
	collation *options.Collation
	pager     *Pagination
	sort      bson.D
}

// QueryOption modifies how a query executes.
type QueryOption func(*queryOptions)

// NoCase makes string equality case-insensitive. Used for username and
// email lookups, matching the case-insensitive collation on their indexes.
func NoCase() QueryOption {
	return func(q *queryOptions) {
		q.collation = &options.Collation{Locale: "en", Strength: 2}
	}
}

// WithPagination applies skip/limit paging to a multi-object query.
func WithPagination(p Pagination) QueryOption {
	return func(q *queryOptions) {
		if p.PerPage > 0 {
			q.pager = &p
		}
	}
}

// SortBy sorts results by a field; ascending when asc is true.
func SortBy(field string, asc bool) QueryOption {
	return func(q *queryOptions) {
		dir := -1
		if asc {
			dir = 1
		}
		q.sort = bson.D{{Key: field, Value: dir}}
	}
}

func applyOptions(opts []QueryOption) queryOptions {
	var q queryOptions
	for _, opt := range opts {
		opt(&q)
	}
	return q
}
