// Package usecase implements the token lifecycle: issuance, lookup,
// expiration policy and the periodic expired-token sweep.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/store"
)

// TokenRepository defines persistence operations for tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *authDomain.Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error)
	GetByToken(ctx context.Context, token string) (*authDomain.Token, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*authDomain.Token, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, pager store.Pagination) ([]*authDomain.Token, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// TokenUseCase manages bearer token lifecycle.
type TokenUseCase interface {
	// Issue creates and persists a token for an account. Unrecognized
	// scopes are dropped silently. expireHours selects the expiration
	// policy: 0 derives the default for the scope set, -1 is effectively
	// infinite, and any other value is clamped to [1, 1000000] hours.
	Issue(ctx context.Context, accountID uuid.UUID, scopes []authDomain.Scope, expireHours int) (*authDomain.Token, error)

	LookupByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error)
	LookupByToken(ctx context.Context, token string) (*authDomain.Token, error)
	LookupByRefreshToken(ctx context.Context, refreshToken string) (*authDomain.Token, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, pager store.Pagination) ([]*authDomain.Token, error)

	// Delete removes a token; reports whether one existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteForAccount removes every token issued to an account.
	DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)

	// IsValid reports whether the token's expiration is still in the
	// future. Every lookup path must combine this with existence checks.
	IsValid(token *authDomain.Token) bool

	// SpecialAdminToken creates the short-lived internal token used by
	// trusted-process calls. It points at a synthetic account id that
	// resolves to no real account.
	SpecialAdminToken() *authDomain.Token
	// IsSpecialAdminToken recognizes the internal token by string and
	// expiry comparison only.
	IsSpecialAdminToken(token *authDomain.Token) bool

	// SweepExpired deletes all persisted tokens whose expiration has
	// passed and returns the count. It is advisory garbage collection;
	// IsValid is still re-checked at each use.
	SweepExpired(ctx context.Context) (int64, error)
	// StartSweeper runs SweepExpired on a fixed period until ctx is done.
	StartSweeper(ctx context.Context)
}
