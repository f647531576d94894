package domain

import (
	apperrors "github.com/metagrid/directory/internal/errors"
)

// Module errors wrapping the standard taxonomy.
var (
	// ErrDomainNotFound indicates the domain does not exist.
	ErrDomainNotFound = apperrors.Wrap(apperrors.ErrNotFound, "domain")

	// ErrPlaceNotFound indicates the place does not exist.
	ErrPlaceNotFound = apperrors.Wrap(apperrors.ErrNotFound, "place")

	// ErrPlaceNameTaken indicates the place name already exists.
	ErrPlaceNameTaken = apperrors.Wrap(apperrors.ErrConflict, "place name already in use")
)
