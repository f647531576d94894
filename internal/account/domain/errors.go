package domain

import (
	apperrors "github.com/metagrid/directory/internal/errors"
)

// Module errors wrapping the standard taxonomy.
var (
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = apperrors.Wrap(apperrors.ErrNotFound, "account")

	// ErrUsernameTaken indicates the username already exists
	// (case-insensitive comparison).
	ErrUsernameTaken = apperrors.Wrap(apperrors.ErrConflict, "username already in use")

	// ErrEmailTaken indicates the email already exists
	// (case-insensitive comparison).
	ErrEmailTaken = apperrors.Wrap(apperrors.ErrConflict, "email already in use")
)
