package domain

import (
	apperrors "github.com/metagrid/directory/internal/errors"
)

// Module errors wrapping the standard taxonomy.
var (
	// ErrTokenNotFound indicates the token does not exist. Expired tokens
	// surface the same way to resolution paths.
	ErrTokenNotFound = apperrors.Wrap(apperrors.ErrNotFound, "token")

	// ErrInvalidCredentials indicates a failed username/password grant.
	// Unknown accounts and wrong passwords are indistinguishable.
	ErrInvalidCredentials = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid credentials")
)
