// Package usecase implements account business logic: creation, lookup,
// relationship maintenance, field-level reads and writes, and cascade
// deletion.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	accountDomain "github.com/metagrid/directory/internal/account/domain"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/store"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *accountDomain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error)
	GetByUsername(ctx context.Context, username string) (*accountDomain.Account, error)
	GetByEmail(ctx context.Context, email string) (*accountDomain.Account, error)
	List(ctx context.Context, pager store.Pagination) ([]*accountDomain.Account, error)
	Count(ctx context.Context) (int64, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	RemoveFromRelationships(ctx context.Context, username string) error
}

// TokenRevoker removes all tokens issued to an account. Satisfied by the
// token use case.
type TokenRevoker interface {
	DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// SponsoredDeleter removes everything sponsored by an account. Satisfied by
// the domains use case.
type SponsoredDeleter interface {
	DeleteForSponsor(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// AccountUseCase manages accounts. It also implements
// permission.AccountSource so the capability resolver can look up roles.
type AccountUseCase interface {
	// CreateAccount registers a new account. Username and email must be
	// unique case-insensitively. The password is hashed before persisting.
	CreateAccount(ctx context.Context, username, email, password, creatorIP string) (*accountDomain.Account, error)

	GetByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error)
	GetByUsername(ctx context.Context, username string) (*accountDomain.Account, error)
	// GetByRef resolves an account by id when ref parses as a UUID,
	// otherwise by username.
	GetByRef(ctx context.Context, ref string) (*accountDomain.Account, error)
	List(ctx context.Context, pager store.Pagination) ([]*accountDomain.Account, error)

	// Authenticate verifies username and password and returns the account.
	Authenticate(ctx context.Context, username, password string) (*accountDomain.Account, error)

	// DeleteAccount removes the account and everything referencing it:
	// issued tokens, friend and connection back-references on other
	// accounts, and the domains it sponsors.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// MakeFriends records a symmetric friendship. Friends are implicitly
	// connected, so both connection sets are updated too.
	MakeFriends(ctx context.Context, usernameA, usernameB string) error
	// RemoveFriend removes the friendship from both sides. The connection
	// survives.
	RemoveFriend(ctx context.Context, usernameA, usernameB string) error
	// MakeConnection records a symmetric connection.
	MakeConnection(ctx context.Context, usernameA, usernameB string) error
	// RemoveConnection removes the connection from both sides. Friendship
	// cannot outlive the connection, so it is removed too.
	RemoveConnection(ctx context.Context, usernameA, usernameB string) error

	// Heartbeat records client liveness for the account.
	Heartbeat(ctx context.Context, id uuid.UUID) error
	// IsOnline reports whether the account heartbeated within the
	// configured window. An account exactly at the boundary is offline.
	IsOnline(account *accountDomain.Account) bool
	// DateWhenNotOnline returns the moment the account stops counting as
	// online, sharing the IsOnline boundary. Zero when it never heartbeated.
	DateWhenNotOnline(account *accountDomain.Account) time.Time

	// RolesForAccount implements permission.AccountSource.
	RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)

	// SetEvaluator attaches the field evaluator. Called once during wiring,
	// after the capability resolver (which needs this use case as its
	// account source) has been built.
	SetEvaluator(ev *permission.Evaluator[*accountDomain.Account])

	// AccountInfo returns the caller-visible field values for an account,
	// filtered by the caller's capabilities.
	AccountInfo(ctx context.Context, ident permission.Identity, account *accountDomain.Account) map[string]any
	// UpdateAccountFields applies the given field writes through the access
	// table and persists the ones that succeed. It returns the public names
	// of the fields actually updated.
	UpdateAccountFields(ctx context.Context, ident permission.Identity, account *accountDomain.Account, updates map[string]any) ([]string, error)
}
