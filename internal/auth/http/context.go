// Package http provides HTTP middleware and handlers for authentication
// and token management.
package http

import (
	"context"

	"github.com/metagrid/directory/internal/permission"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, ident permission.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// GetIdentity retrieves the caller identity from the context. A zero
// identity is a valid anonymous caller.
func GetIdentity(ctx context.Context) permission.Identity {
	if ident, ok := ctx.Value(identityKey).(permission.Identity); ok {
		return ident
	}
	return permission.Identity{}
}
